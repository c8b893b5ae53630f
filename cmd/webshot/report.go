package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"webshot/internal/core/report"
	"webshot/internal/core/session"
)

var reportFlags struct {
	pageSize     int
	ignoreErrors bool
	column       bool
	embedImages  bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate an HTML report from a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionPath := viper.GetString("session")
		sess, err := session.New(sessionPath, nil)
		if err != nil {
			return err
		}
		defer sess.Close()

		index, err := report.Generate(sess, report.Options{
			PageSize:     reportFlags.pageSize,
			IgnoreErrors: reportFlags.ignoreErrors,
			SingleColumn: reportFlags.column,
			EmbedImages:  reportFlags.embedImages,
			Dir:          filepath.Dir(sessionPath),
		})
		if err != nil {
			return err
		}
		if index == "" {
			fmt.Println("Nothing to do")
			return nil
		}
		fmt.Println("Report generated:", index)
		return nil
	},
}

var serveFlags struct {
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a generated report over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := filepath.Dir(viper.GetString("session"))
		return report.Serve(dir, serveFlags.addr)
	},
}

func init() {
	f := reportCmd.Flags()
	f.IntVarP(&reportFlags.pageSize, "page-size", "p", report.DefaultPageSize, "results per page")
	f.BoolVarP(&reportFlags.ignoreErrors, "ignore-errors", "i", false, "ignore non-2XX responses")
	f.BoolVar(&reportFlags.column, "column", false, "single-column layout")
	f.BoolVar(&reportFlags.embedImages, "embed-images", false, "embed images in HTML as base64")
	rootCmd.AddCommand(reportCmd)

	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "127.0.0.1:8000", "listen address")
	rootCmd.AddCommand(serveCmd)
}
