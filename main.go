package main

import "slush-dating-backend/cmd"

func main() {
	cmd.Run()
}
