package model

// Button is one inline action the owner can tap. Data is the opaque
// callback payload the transport hands back when the button is pressed.
type Button struct {
	Label string
	Data  string
}

// Keyboard is a grid of buttons attached to a message. A nil Keyboard
// sends a plain message.
type Keyboard [][]Button
