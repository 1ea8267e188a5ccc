package main

import (
	"github.com/eleven-am/proctor-backend/internal/bootstrap"
)

// @title Proctor Backend API
// @version 1.0.0
// @description Real-time exam proctoring backend: WebRTC camera sessions, frame analysis, violation accounting and a live alert feed

// @host api.proctor.example.com
// @BasePath /v1

func main() {
	bootstrap.Run()
}
