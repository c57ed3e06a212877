package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lasqc/internal/certify"
	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/pipeline"
)

var certifyOut string

var certifyCmd = &cobra.Command{
	Use:   "certify <file>",
	Short: "Process a LAS file and issue a signed quality certificate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, cfg, "certify", true)
		if err != nil {
			return err
		}
		defer e.Close()

		cert, _, err := processAndCertify(cmd, e, args[0])
		if err != nil {
			return err
		}

		if err := e.Store.SaveCertificate(ctx, cert); err != nil {
			return eris.Wrap(err, "save certificate")
		}

		if certifyOut != "" {
			return writeFile(certifyOut, func(w io.Writer) error { return printJSON(w, cert) })
		}
		return printJSON(os.Stdout, cert)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <certificate.json>",
	Short: "Check a certificate's signature",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read certificate")
		}
		var cert model.Certificate
		if err := json.Unmarshal(data, &cert); err != nil {
			return eris.Wrap(err, "decode certificate")
		}
		if err := certify.Verify(&cert, []byte(cfg.Certify.SigningKey)); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "certificate %s is valid (%s, grade %s)\n", cert.ID, cert.SignatureAlgorithm, cert.Grade)
		return nil
	},
}

func init() {
	certifyCmd.Flags().StringVar(&certifyOut, "out", "", "write the certificate to this path instead of stdout")
	rootCmd.AddCommand(certifyCmd)
	rootCmd.AddCommand(verifyCmd)
}

// processAndCertify runs the pipeline over src, a path or URL, and issues a
// certificate for the result.
func processAndCertify(cmd *cobra.Command, e *env, path string) (*model.Certificate, *pipeline.Result, error) {
	doc, err := e.Loader.LoadOne(cmd.Context(), path)
	if err != nil {
		return nil, nil, err
	}

	res := e.Pipeline.Process(cmd.Context(), pipeline.Input{Filename: doc.Name, Content: doc.Content})
	req, err := res.CertifyRequest()
	if err != nil {
		return nil, res, eris.Wrapf(err, "certify %s: %v", path, res.Errors)
	}
	cert, err := e.Issuer.Issue(req)
	if err != nil {
		return nil, res, err
	}

	zap.L().Info("certificate issued",
		zap.String("path", path),
		zap.String("certificate_id", cert.ID),
		zap.String("grade", string(cert.Grade)),
	)
	return cert, res, nil
}
