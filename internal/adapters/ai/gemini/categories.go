package gemini

// questionCategories steers the analyst toward varied questions; one is
// picked at random per analyze call. Game content is Spanish.
var questionCategories = []string{
	"colores (de ropa, cabello, objetos, fondo)",
	"posiciones (dónde están parados/sentados los personajes)",
	"acciones (qué están haciendo los personajes)",
	"emociones (expresiones faciales: feliz, triste, sorprendido, etc.)",
	"ropa/accesorios (qué llevan puesto los personajes)",
	"objetos (qué elementos hay en la escena)",
	"cantidades (cuántos personajes u objetos se ven)",
	"tamaños (comparaciones: más grande/pequeño)",
	"formas (formas de objetos o elementos)",
	"relaciones (quién está al lado de quién, interacciones)",
}
