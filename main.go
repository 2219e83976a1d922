package main

import "github.com/shouni/go-sitemap-watch/cmd"

func main() {
	cmd.Execute()
}
