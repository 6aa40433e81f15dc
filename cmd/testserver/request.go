package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/aura-studio/testserver/echo"
	"github.com/aura-studio/testserver/testserver"
	"github.com/spf13/cobra"
)

type requestFlags struct {
	method  string
	headers []string
	data    string
	json    string
}

func newRequestCommand(flags *rootFlags) *cobra.Command {
	rf := &requestFlags{}

	cmd := &cobra.Command{
		Use:   "request [path]",
		Short: "Send one request to a fresh echo server and print the response",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}

			opts, err := rf.requestOptions()
			if err != nil {
				return err
			}

			srv := testserver.New(echo.Handler(), flags.options()...)

			res, err := srv.Request(cmd.Context(), path, opts...)
			if err != nil {
				return errors.Join(err, srv.Close(cmd.Context()))
			}

			printErr := printResponse(cmd.OutOrStdout(), res)

			return errors.Join(printErr, srv.Close(cmd.Context()))
		},
	}

	cmd.Flags().StringVarP(&rf.method, "method", "X", http.MethodGet, "request method")
	cmd.Flags().StringArrayVarP(&rf.headers, "header", "H", nil, "request header as key:value, repeatable")
	cmd.Flags().StringVarP(&rf.data, "data", "d", "", "raw request body")
	cmd.Flags().StringVar(&rf.json, "json", "", "JSON request body, sent as application/json")
	cmd.MarkFlagsMutuallyExclusive("data", "json")

	return cmd
}

func (rf *requestFlags) requestOptions() ([]testserver.RequestOption, error) {
	opts := []testserver.RequestOption{testserver.WithMethod(rf.method)}

	for _, header := range rf.headers {
		key, value, ok := strings.Cut(header, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid header %q, want key:value", header)
		}
		opts = append(opts, testserver.WithRequestHeader(strings.TrimSpace(key), strings.TrimSpace(value)))
	}

	switch {
	case rf.json != "":
		if !json.Valid([]byte(rf.json)) {
			return nil, fmt.Errorf("invalid --json body %q", rf.json)
		}
		opts = append(opts, testserver.WithJSON(json.RawMessage(rf.json)))
	case rf.data != "":
		opts = append(opts, testserver.WithBody(testserver.String(rf.data)))
	}

	return opts, nil
}

func printResponse(w io.Writer, res *http.Response) error {
	body, err := testserver.ReadBody(res)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s\n", res.Proto, res.Status)

	keys := make([]string, 0, len(res.Header))
	for key := range res.Header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, value := range res.Header[key] {
			fmt.Fprintf(w, "%s: %s\n", key, value)
		}
	}

	fmt.Fprintf(w, "\n%s\n", body)

	return nil
}
