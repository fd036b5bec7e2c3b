package domain

import "errors"

var (
	ErrJobNotFound = errors.New("download not found")
	ErrQueueFull   = errors.New("download queue is full")
	ErrShutdown    = errors.New("service is shutting down")
)
