/*
Package filesystem wraps os.Stat and os.Open with retry logic for NFS stale
file handle errors.

The resource cache and the database directory are commonly mounted from a
network volume in container deployments. An ESTALE (errno 116) seen while the
server is failing over is usually transient, so these helpers retry it with
exponential backoff:

  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

Every other error is returned immediately.

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig(filesystem.VolumeResources))

Retry activity is reported through an Observer installed with SetObserver;
the metrics package registers one at startup.
*/
package filesystem
