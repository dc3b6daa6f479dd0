package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	onnxruntime "github.com/yalue/onnxruntime_go"
)

// EnvLibraryPath overrides ONNX Runtime shared library discovery.
const EnvLibraryPath = "CAPGO_ONNX_LIB"

const (
	osLinux   = "linux"
	osDarwin  = "darwin"
	osWindows = "windows"

	libLinux   = "libonnxruntime.so"
	libDarwin  = "libonnxruntime.dylib"
	libWindows = "onnxruntime.dll"
)

// libraryName returns the appropriate library filename for the current OS.
func libraryName() (string, error) {
	switch runtime.GOOS {
	case osLinux:
		return libLinux, nil
	case osDarwin:
		return libDarwin, nil
	case osWindows:
		return libWindows, nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// systemLibraryPaths lists well-known install locations to try in order.
func systemLibraryPaths() []string {
	return []string{
		"/usr/local/lib/" + libLinux,
		"/usr/lib/" + libLinux,
		"/opt/onnxruntime/cpu/lib/" + libLinux,
	}
}

// findProjectRoot walks upward from the working directory looking for go.mod.
func findProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	root := cwd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			return root, nil
		}
		parent := filepath.Dir(root)
		if parent == root {
			return "", errors.New("could not find project root")
		}
		root = parent
	}
}

// trySetLibraryPath points the runtime at path if the file exists.
func trySetLibraryPath(path string) bool {
	if _, err := os.Stat(path); err == nil {
		onnxruntime.SetSharedLibraryPath(path)
		return true
	}
	return false
}

// SetLibraryPath locates the ONNX Runtime shared library and registers it
// with the binding. Resolution order: CAPGO_ONNX_LIB, system install
// locations, then <project root>/onnxruntime/lib.
func SetLibraryPath() error {
	if env := os.Getenv(EnvLibraryPath); env != "" {
		if trySetLibraryPath(env) {
			return nil
		}
		return fmt.Errorf("ONNX Runtime library not found at %s (from %s)", env, EnvLibraryPath)
	}
	for _, path := range systemLibraryPaths() {
		if trySetLibraryPath(path) {
			return nil
		}
	}
	root, err := findProjectRoot()
	if err != nil {
		return err
	}
	libName, err := libraryName()
	if err != nil {
		return err
	}
	libPath := filepath.Join(root, "onnxruntime", "lib", libName)
	if !trySetLibraryPath(libPath) {
		return fmt.Errorf("ONNX Runtime library not found at %s", libPath)
	}
	return nil
}

// Initialize prepares the ONNX Runtime environment once per process.
// Safe to call repeatedly.
func Initialize() error {
	if onnxruntime.IsInitialized() {
		return nil
	}
	if err := SetLibraryPath(); err != nil {
		return err
	}
	if err := onnxruntime.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize ONNX Runtime: %w", err)
	}
	return nil
}
