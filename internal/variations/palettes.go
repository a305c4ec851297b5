package variations

// defaultColors backs recolor requests that arrive without a palette.
var defaultColors = []string{
	"crimson red",
	"royal blue",
	"forest green",
	"mustard yellow",
	"charcoal black",
	"ivory white",
}

// defaultPalettes backs visualize requests that arrive without one.
var defaultPalettes = []string{
	"pastel spring",
	"earth tones",
	"jewel tones",
	"warm sunset",
	"ocean blues",
	"muted autumn",
	"neon pop",
	"soft monochrome",
}
