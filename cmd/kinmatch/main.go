// Command kinmatch runs the kinship matching engine as an MCP server or
// answers one-off queries against the profile registry.
package main

func main() {
	Execute()
}
