package chat

// Reply is what a handler hands back to the transport: text to send plus an
// optional keyboard. Choices are rows of button labels; RemoveKeyboard tears
// down whatever keyboard the previous turn showed.
type Reply struct {
	Text           string
	Choices        [][]string
	RemoveKeyboard bool
}

func text(s string) Reply {
	return Reply{Text: s, RemoveKeyboard: true}
}

func ask(s string, choices ...[]string) Reply {
	return Reply{Text: s, Choices: choices}
}

// column builds a one-button-per-row keyboard from labels.
func column(labels ...string) [][]string {
	rows := make([][]string, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, []string{l})
	}
	return rows
}

var yesNo = [][]string{{"sim", "não"}}
