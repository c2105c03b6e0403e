package main

import "github.com/naka-gawa/activity-report/cmd"

func main() {
	cmd.Execute()
}
