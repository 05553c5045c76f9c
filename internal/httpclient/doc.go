// Package httpclient sends driver requests over HTTP.
//
// [Executor] is the driver-side collaborator of the auth strategies: every
// request is passed through the configured strategy before it is converted
// to an *http.Request and sent.
//
//	exec := httpclient.NewExecutor(httpclient.NewClient(cfg.Timeout), strategy)
//	resp, err := exec.Do(ctx, req)
//
// [NewClient] returns a client with connection reuse and the given overall
// timeout. [LoadBody] reads a payload from inline text or a file.
package httpclient
