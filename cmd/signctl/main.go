// signctl runs the signing pipeline against local files, without the portal
// API or any storage collaborator: useful for scripting and for inspecting
// what a signing operation would produce.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"firmadocs/signing-portal/signing-portal-backend/internal/credentials"
	"firmadocs/signing-portal/signing-portal-backend/internal/signing"
	"firmadocs/signing-portal/signing-portal-backend/pkg/qr"
	"firmadocs/signing-portal/signing-portal-backend/pkg/stamp"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "signctl",
		Short: "Document signing pipeline CLI",
	}

	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("signctl version %s\n", version)
		},
	}
}

func signCmd() *cobra.Command {
	var (
		pdfPath     string
		certPath    string
		keyPath     string
		passphrase  string
		institution string
		signerName  string
		role        string
		baseURL     string
		outPath     string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a PDF and write the stamped result",
		RunE: func(cmd *cobra.Command, args []string) error {
			original, err := os.ReadFile(pdfPath)
			if err != nil {
				return err
			}
			certPEM, err := os.ReadFile(certPath)
			if err != nil {
				return err
			}
			keyPEM, err := os.ReadFile(keyPath)
			if err != nil {
				return err
			}

			cert, err := credentials.ParseCertificate(certPEM)
			if err != nil {
				return err
			}
			key, err := credentials.DecryptPrivateKey(keyPEM, []byte(passphrase))
			if err != nil {
				return err
			}

			if signerName == "" {
				signerName = cert.Subject.CommonName
			}
			timestamp := signing.FormatTimestamp(time.Now())
			record := signing.BuildRecord(institution, signerName, role, timestamp)

			digest := signing.Digest(record)
			signature, err := signing.Sign(digest, key)
			key = nil
			if err != nil {
				return err
			}

			refs := signing.NewReferenceGenerator(baseURL, zap.NewNop())
			reference := refs.Mint()

			stamper := stamp.NewStamper(qr.NewEncoder(256))
			stamped, err := stamper.Stamp(original, stamp.Input{
				SignerName:      signerName,
				Timestamp:       timestamp,
				CanonicalRecord: record,
				SignatureB64:    signature,
				ReferenceURL:    reference.URL,
			})
			if err != nil {
				return err
			}

			if err := os.WriteFile(outPath, stamped, 0o644); err != nil {
				return err
			}

			fmt.Printf("signed %s -> %s\n", pdfPath, outPath)
			fmt.Printf("record:    %s\n", record)
			fmt.Printf("digest:    %s\n", hex.EncodeToString(digest[:]))
			fmt.Printf("public id: %s\n", reference.PublicID)
			fmt.Printf("url:       %s\n", reference.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "PDF file to sign")
	cmd.Flags().StringVar(&certPath, "cert", "", "certificate file (.cer, PEM)")
	cmd.Flags().StringVar(&keyPath, "key", "", "encrypted private key file (.key, PEM)")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "private key passphrase")
	cmd.Flags().StringVar(&institution, "institution", "", "institution name for the canonical record")
	cmd.Flags().StringVar(&signerName, "signer", "", "signer name (defaults to certificate CN)")
	cmd.Flags().StringVar(&role, "role", "", "signer role for the canonical record")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "public base URL for the verification link")
	cmd.Flags().StringVar(&outPath, "out", "signed.pdf", "output file")
	_ = cmd.MarkFlagRequired("pdf")
	_ = cmd.MarkFlagRequired("cert")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("passphrase")

	return cmd
}
