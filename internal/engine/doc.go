// Package engine contains the game loop and the nutrient economy.
// This is the heartbeat of IdleAbsurditree.
//
// ARCHITECTURAL RULE: only the Manager mutates GameData. Everything else
// (ticker, HTTP API, websocket clients, CLI) goes through its methods and
// observes changes via Subscribe.
package engine
