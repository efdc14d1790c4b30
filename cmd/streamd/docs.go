package main

// General API documentation for swaggo. Run `swag init -g cmd/streamd/docs.go -o docs` to regenerate.
//
// @title           streamd API
// @version         1.0
// @description     Streaming text generation over local GGUF models.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
