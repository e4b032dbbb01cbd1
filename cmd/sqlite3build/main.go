package main

import "github.com/dnys1/sqlite3build/cmd/sqlite3build/internal"

func main() {
	internal.Execute()
}
