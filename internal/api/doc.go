// Package api provides the HTTP transport gateway for the Xueke service.
//
// # Client
//
// The Client wraps every service endpoint behind a typed method:
//
//	client := api.NewClient("https://xuke.ambition.qzz.io", 30*time.Second)
//	err := client.Ping(ctx)
//	resp, err := client.Login(ctx, dto.LoginRequest{...})
//
// # Error model
//
// Methods return a non-nil error only for transport failures: connection
// errors, timeouts, non-200 statuses, or undecodable bodies. Business
// rejections arrive as a decoded response with Success=false (or
// Valid=false) and the server's reason in Error; callers branch on the
// body, not on the Go error.
//
// # Direct-link downloads
//
// DownloadFile streams a completed task's direct link to disk with an
// optional progress callback, used by the download package.
package api
