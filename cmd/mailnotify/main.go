package main

import "github.com/mixelka/mailnotify/internal/cli"

func main() {
	cli.Execute()
}
