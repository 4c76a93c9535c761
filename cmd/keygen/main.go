package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/marzdeck/backend/pkg/utils/sshkeygen"
)

func main() {
	var dir string
	flag.StringVar(&dir, "dir", "", "directory for the key pair (default ~/.ssh)")
	flag.Parse()

	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("failed to resolve home directory: %v", err)
		}
		dir = filepath.Join(homeDir, ".ssh")
	}

	privateKeyPath := filepath.Join(dir, "id_ed25519")
	publicKeyPath := filepath.Join(dir, "id_ed25519.pub")

	fmt.Println("Generating Ed25519 SSH key pair...")
	fmt.Printf("Private key: %s\n", privateKeyPath)
	fmt.Printf("Public key: %s\n", publicKeyPath)

	if err := sshkeygen.WriteKeyPair(privateKeyPath, publicKeyPath); err != nil {
		log.Fatalf("failed to generate key pair: %v", err)
	}
	fmt.Println("Done")
}
