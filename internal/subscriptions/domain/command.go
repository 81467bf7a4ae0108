package domain

// Command is a one-shot instruction for the presentation layer.
type Command interface {
	command()
}

// ErrorMessage asks the presentation layer to display an error.
type ErrorMessage struct {
	Text string `json:"text"`
}

func (ErrorMessage) command() {}

// String returns the message text.
func (m ErrorMessage) String() string {
	return m.Text
}
