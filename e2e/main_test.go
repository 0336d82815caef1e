package e2e

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

const (
	testUser     = "testuser"
	testPassword = "testpass123"
	openingCash  = "100"
	startTimeout = 10 * time.Second
	stopTimeout  = 10 * time.Second
)

var appURL string

func TestMain(m *testing.M) {
	os.Exit(runTestMain(m))
}

func runTestMain(m *testing.M) int {
	root, err := moduleRoot()
	if err != nil {
		fmt.Println(err)
		return 1
	}

	work, err := os.MkdirTemp("", "wallet-ledger-e2e")
	if err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(work)

	serverBin, err := build(root, work, "server")
	if err != nil {
		fmt.Println(err)
		return 1
	}
	adduserBin, err := build(root, work, "adduser")
	if err != nil {
		fmt.Println(err)
		return 1
	}

	// The account is provisioned the way an operator would, with a funded
	// cash wallet.
	dbPath := filepath.Join(work, "wallet.db")
	provision := exec.Command(adduserBin,
		"-user", testUser, "-password", testPassword, "-db", dbPath, "-cash", openingCash)
	if out, err := provision.CombinedOutput(); err != nil {
		fmt.Printf("Failed to provision user: %v\n%s\n", err, out)
		return 1
	}

	port, err := freePort()
	if err != nil {
		fmt.Printf("Failed to pick a port: %v\n", err)
		return 1
	}
	appURL = "http://localhost:" + strconv.Itoa(port)

	server := exec.Command(serverBin, "-env", "")
	server.Env = append(os.Environ(),
		"PORT="+strconv.Itoa(port),
		"DB_PATH="+dbPath,
		"JWT_SECRET=e2e-secret-0123456789",
		"LOG_LEVEL=warn",
		"CORS_ORIGINS="+appURL,
	)
	server.Stdout = os.Stdout
	server.Stderr = os.Stderr
	if err := server.Start(); err != nil {
		fmt.Printf("Failed to start server: %v\n", err)
		return 1
	}
	defer stop(server)

	if err := waitHealthy(appURL+"/health", startTimeout); err != nil {
		fmt.Println(err)
		return 1
	}

	return m.Run()
}

// moduleRoot walks up from the working directory to the go.mod.
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above the working directory")
		}
		dir = parent
	}
}

func build(root, outDir, command string) (string, error) {
	bin := filepath.Join(outDir, command)
	cmd := exec.Command("go", "build", "-o", bin, "./cmd/"+command)
	cmd.Dir = root
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("failed to build %s: %w\n%s", command, err, out)
	}
	return bin, nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func waitHealthy(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not healthy at %s after %s", url, timeout)
}

// stop interrupts the server so it shuts down cleanly, and kills it if it
// does not exit in time.
func stop(server *exec.Cmd) {
	if err := server.Process.Signal(os.Interrupt); err != nil {
		server.Process.Kill()
		return
	}
	done := make(chan error, 1)
	go func() { done <- server.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			fmt.Printf("Server exited with error: %v\n", err)
		}
	case <-time.After(stopTimeout):
		fmt.Println("Server did not stop in time, killing it")
		server.Process.Kill()
	}
}
