// Package config defines the library configuration surface and its
// file/environment loading and saving.
package config
