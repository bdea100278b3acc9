package main

//go:generate swag init -g cmd/cycled/main.go -o docs

// @title           Dotted Cycle API
// @version         0.1.0
// @description     Daily cycle orchestration: phases, dish ranking, bids and sourcing.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
