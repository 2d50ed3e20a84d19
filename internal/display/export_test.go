package display

// NewFrameNotifierWithWriter lets tests replace the PNG file writer.
var NewFrameNotifierWithWriter = newFrameNotifier
