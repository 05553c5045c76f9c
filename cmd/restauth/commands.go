package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/restauth/internal/auth"
	"github.com/torosent/restauth/internal/config"
	"github.com/torosent/restauth/internal/httpclient"
	"github.com/torosent/restauth/internal/output"
	"github.com/torosent/restauth/internal/request"
	"github.com/torosent/restauth/internal/session"
)

const maxPrintedBody = 1 << 20

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "restauth",
		Short:         "Authenticate REST driver requests with session-cached tokens",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	config.RegisterFlags(root)
	root.PersistentFlags().String("stats", "", "Print token statistics to stderr after the command: text or json")
	root.PersistentFlags().Lookup("stats").NoOptDefVal = string(output.FormatText)

	root.AddCommand(newTokenCmd(), newRequestCmd(), newSessionCmd())
	return root
}

// withApp builds the app for cmd, runs fn with the session store attached to
// its context and tears everything down again.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var statsFormat output.Format
	if cmd.Flags().Changed("stats") {
		raw, _ := cmd.Flags().GetString("stats")
		if statsFormat, err = output.ParseFormat(raw); err != nil {
			return err
		}
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if statsFormat != "" {
			_ = output.Write(cmd.ErrOrStderr(), a.collector.Stats(), statsFormat)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = errors.Join(err, a.close(shutdownCtx))
	}()

	return fn(session.NewContext(ctx, a.store), a)
}

func newTokenCmd() *cobra.Command {
	var showClaims bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the current token, fetching it when missing or stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				token, err := a.strategy.Token(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, token)
				if showClaims {
					return printClaims(out, token)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showClaims, "claims", false, "Also print the decoded token payload")
	return cmd
}

func printClaims(w io.Writer, token string) error {
	claims, err := auth.Claims(token)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(claims); err != nil {
		return err
	}
	if iat, err := auth.IssuedAt(token); err == nil {
		fmt.Fprintf(w, "issued at: %s\n", iat.UTC().Format(time.RFC3339))
	}
	return nil
}

type requestOptions struct {
	method      string
	headers     []string
	body        string
	bodyFile    string
	dumpHeaders bool
}

func newRequestCmd() *cobra.Command {
	opts := &requestOptions{}
	cmd := &cobra.Command{
		Use:   "request <url>",
		Short: "Send a request decorated by the configured authenticator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return runRequest(ctx, cmd.OutOrStdout(), a, args[0], opts)
			})
		},
	}
	cmd.Flags().StringVarP(&opts.method, "method", "X", "GET", "HTTP method")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	cmd.Flags().StringVar(&opts.body, "body", "", "Inline request body")
	cmd.Flags().StringVar(&opts.bodyFile, "body-file", "", "Path to a file used as request body")
	cmd.Flags().BoolVar(&opts.dumpHeaders, "dump-headers", false, "Print the decorated header list instead of sending")
	return cmd
}

func runRequest(ctx context.Context, out io.Writer, a *app, target string, opts *requestOptions) error {
	target, err := resolveTarget(a.cfg.Host, target)
	if err != nil {
		return err
	}

	headers := make([]request.Header, 0, len(opts.headers))
	for _, line := range opts.headers {
		h, err := request.ParseHeader(line)
		if err != nil {
			return err
		}
		headers = append(headers, h)
	}

	payload, err := httpclient.LoadBody(opts.body, opts.bodyFile)
	if err != nil {
		return err
	}

	req, err := request.New(strings.ToUpper(opts.method), target, payload, headers...)
	if err != nil {
		return err
	}

	if opts.dumpHeaders {
		prepared, err := a.executor.Prepare(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", prepared.Method(), prepared.URL())
		for _, h := range prepared.Headers() {
			fmt.Fprintln(out, h.String())
		}
		return nil
	}

	resp, err := a.executor.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Fprintln(out, resp.Status)
	if _, err := io.Copy(out, io.LimitReader(resp.Body, maxPrintedBody)); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return nil
}

// resolveTarget joins a relative target onto host.
func resolveTarget(host, target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", target, err)
	}
	if u.IsAbs() {
		return target, nil
	}
	if host == "" {
		return "", fmt.Errorf("relative url %q requires --host", target)
	}
	base, err := url.Parse(strings.TrimRight(host, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", host, err)
	}
	return base.ResolveReference(&url.URL{Path: strings.TrimLeft(u.Path, "/"), RawQuery: u.RawQuery}).String(), nil
}

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the session cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the cached token from the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				store := session.FromContext(ctx)
				if store == nil {
					return errors.New("no session store attached")
				}
				if err := store.Delete(ctx, auth.TokenSessionKey); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared session %s\n", a.sessionID)
				return nil
			})
		},
	})
	return cmd
}
