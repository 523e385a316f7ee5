package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var outputFile string

func init() {
	secretsCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default is stdout)")
	rootCmd.AddCommand(secretsCmd)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// secretsCmd generates the server-wide secrets of the vault subsystem: the
// AES key and IV for field encryption, the hash salt and the token signing
// secrets. Output is a yaml block ready to paste under "vault:" in conf.yaml.
var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Generate server secrets",
	Long:  "Generate the field encryption key, IV, salts and token signing secrets for the Passlock Server configuration",
	Run: func(cmd *cobra.Command, args []string) {
		secrets := map[string]interface{}{
			"vault": map[string]interface{}{
				"encryptionKeyHex":       randomHex(32),
				"encryptionIvHex":        randomHex(16),
				"hashSalt":               randomHex(16),
				"tokenMasterSecret":      randomHex(32),
				"passkeyChallengeSecret": randomHex(32),
				"publicKeySalt":          randomHex(16),
			},
		}
		fileBytes, err := yaml.Marshal(secrets)
		check(err)
		if outputFile != "" {
			// save secrets to disk in a file
			// fail if file already exists
			if _, err := os.Stat(outputFile); !errors.Is(err, os.ErrNotExist) {
				fmt.Printf("File already exists: %s\n", outputFile)
				os.Exit(1)
			}
			err = os.WriteFile(outputFile, fileBytes, 0600)
			check(err)
			fmt.Printf("Output file: %s\n", outputFile)
		} else {
			fmt.Printf("\n%s\n", string(fileBytes))
		}
	},
}
