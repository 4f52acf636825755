// ABOUTME: Entry point for the studio CLI
// ABOUTME: Delegates to the cobra command tree
package main

import "github.com/Resonate-Protocol/resonate-studio/internal/cli"

func main() {
	cli.Execute()
}
