/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

Frame sequences and LUT libraries commonly live on shared NFS storage. When a file
is replaced on the server while a client holds a cached handle, the next access fails
with ESTALE. Retrying after a short pause resolves the handle again.

# Usage

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer f.Close()

	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())

# Retry Behavior

Defaults: 3 retries, 50ms initial backoff doubling up to 500ms. Only ESTALE
triggers a retry; every other error is returned immediately.

# Metrics

Operations report through the Observer installed with SetObserver. The metrics
package provides the Prometheus implementation.
*/
package filesystem
