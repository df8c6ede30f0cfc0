// Command fourscal extracts events from 4s.link pages and turns them into
// calendar entries.
package main

import "github.com/pfrederiksen/fourscal/internal/cli"

func main() {
	cli.Execute()
}
