package main

import "github.com/shouni/go-news-crawl/cmd"

func main() {
	cmd.Execute()
}
