package theme

import (
	"fmt"
)

// Banner returns the graveyard banner shown by init and run.
func Banner() string {
	const grey = "\033[90m"
	const green = "\033[32m"
	const red = "\033[31m"
	const reset = "\033[0m"

	art := "" +
		grey + "      .-------.\n" + reset +
		grey + "     /  R.I.P  \\" + reset + "   " + red + "DEADTICKER" + reset + "\n" +
		grey + "    |  $TICKER  |\n" + reset +
		grey + "    |           |" + reset + "   " + green + "+0.0% today" + reset + "\n" +
		grey + "  __|___________|__\n" + reset +
		"   tombstones for tokens, on request 🕯️\n"
	return art
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}
