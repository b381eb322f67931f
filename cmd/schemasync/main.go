package main

import "github.com/dbsmedya/schemasync/cmd/schemasync/cmd"

func main() {
	cmd.Execute()
}
