// Command installer builds cmd/sona with version metadata stamped in and
// copies the binary onto the PATH. Run it from the repository root:
//
//	go run ./cmd/installer -path ~/.local/bin
//	go run ./cmd/installer -uninstall
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
)

const versionPkg = "sona/pkg/version"

func main() {
	customPath := flag.String("path", "", "Custom install directory")
	release := flag.String("version", "", "Version to stamp into the binary")
	uninstall := flag.Bool("uninstall", false, "Remove an installed binary instead")
	flag.Parse()

	binaryName := "sona"
	if runtime.GOOS == "windows" {
		binaryName += ".exe"
	}

	targetDir := *customPath
	if targetDir == "" {
		targetDir = defaultInstallDir()
	}

	if *uninstall {
		removeInstalled(binaryName, targetDir)
		return
	}

	repoRoot, err := os.Getwd()
	if err != nil {
		exitWithError("unable to determine working directory", err)
	}
	buildOutput := filepath.Join(repoRoot, binaryName)
	defer os.Remove(buildOutput)

	fmt.Println("Building sona...")
	if err := build(repoRoot, buildOutput, *release); err != nil {
		exitWithError("go build failed", err)
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		exitWithError("unable to create install directory", err)
	}

	destPath := filepath.Join(targetDir, binaryName)
	fmt.Printf("Installing to %s\n", destPath)
	if err := copyFile(buildOutput, destPath); err != nil {
		exitWithError("failed to copy binary (try running with elevated permissions)", err)
	}

	fmt.Println("sona installed. Run 'sona version' to check it is on your PATH.")
}

func build(dir, output, release string) error {
	ldflags := []string{
		"-X " + versionPkg + ".BuildDate=" + time.Now().UTC().Format(time.RFC3339),
		"-X " + versionPkg + ".GitCommit=" + gitCommit(dir),
	}
	if release != "" {
		ldflags = append(ldflags, "-X "+versionPkg+".Version="+release)
	}

	cmd := exec.Command("go", "build", "-ldflags", strings.Join(ldflags, " "), "-o", output, "./cmd/sona")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Dir = dir
	return pkgerrors.WithStack(cmd.Run())
}

func gitCommit(dir string) string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func defaultInstallDir() string {
	switch runtime.GOOS {
	case "windows":
		if base := os.Getenv("LOCALAPPDATA"); base != "" {
			return filepath.Join(base, "Programs", "Sona")
		}
		return filepath.Join(os.TempDir(), "Sona")
	default:
		return "/usr/local/bin"
	}
}

func removeInstalled(binaryName, targetDir string) {
	candidates := []string{filepath.Join(targetDir, binaryName)}
	if p, err := exec.LookPath("sona"); err == nil && p != candidates[0] {
		candidates = append(candidates, p)
	}

	removed := false
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := os.Remove(path); err != nil {
			exitWithError("failed to remove "+path, err)
		}
		fmt.Printf("Removed %s\n", path)
		removed = true
	}
	if !removed {
		fmt.Println("No installed sona binary was found.")
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return pkgerrors.WithStack(err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return pkgerrors.WithStack(err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return pkgerrors.Wrapf(err, "copy to %s", dst)
	}
	return out.Sync()
}

func exitWithError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
