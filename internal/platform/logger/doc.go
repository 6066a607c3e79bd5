// Package logger provides structured logging functionality for the library.
package logger
