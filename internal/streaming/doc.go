/*
Package streaming sends rendered frames to HTTP clients as a live
multipart/x-mixed-replace JPEG stream.

Each frame is encoded once and written as one part. Writes are bounded by
Config.WriteTimeout so a stalled client cannot pin the handler; the request
context ends the stream when the client goes away.

	fw := streaming.NewFrameWriter(r.Context(), w, streaming.DefaultConfig())
	defer fw.Close()
	for img := range frames {
		if err := fw.WriteFrame(img); err != nil {
			return // ErrClientGone, ErrWriteTimeout or ErrStreamCanceled
		}
	}
*/
package streaming
