package main

import (
	"github.com/thereayou/chatline/internal/server"
)

func main() {
	s := server.NewServer()
	s.Run()
}
