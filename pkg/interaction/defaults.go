package interaction

// defaultEvents are the generic user interaction events watched on the root
// source by AddDefaults.
var defaultEvents = []string{
	"tap",
	"doubleTap",
	"longPress",
	"pan",
	"pinch",
	"rotate",
	"swipe",
	"touch",
	"scroll",
	"scrollStarted",
	"scrollEnded",
	"scrollToTop",
	"scrollToBottom",
	"scrollToHorizontalOffset",
	"scrollToVerticalOffset",
	"focus",
	"blur",
	"textChange",
	"returnPress",
	"checkedChange",
	"selectedIndexChange",
}

// DefaultEvents returns a copy of the default interaction event names.
func DefaultEvents() []string {
	return append([]string(nil), defaultEvents...)
}
