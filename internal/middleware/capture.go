package middleware

import (
    "bytes"
    "encoding/binary"
    "encoding/json"
    "net/http"
)

// captureWriter records status and body while forwarding to the client.
// At most limit bytes are kept; limit <= 0 keeps everything.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func newCaptureWriter(w http.ResponseWriter, limit int) *captureWriter {
    return &captureWriter{ResponseWriter: w, status: http.StatusOK, limit: int64(limit)}
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
    switch remain := cw.limit - cw.size; {
    case cw.limit <= 0:
        cw.buf.Write(b)
    case remain >= int64(len(b)):
        cw.buf.Write(b)
    case remain > 0:
        cw.buf.Write(b[:remain])
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// truncated reports whether the body outgrew the capture limit.
func (cw *captureWriter) truncated() bool { return cw.limit > 0 && cw.size > cw.limit }

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}

// replay writes a stored response.  Content-Length is recomputed by the
// server; marker names the header that tells clients this was a replay.
func replay(w http.ResponseWriter, status int, header http.Header, body []byte, marker, value string) {
    for k, vals := range header {
        if http.CanonicalHeaderKey(k) == "Content-Length" {
            continue
        }
        for _, v := range vals {
            w.Header().Add(k, v)
        }
    }
    w.Header().Set(marker, value)
    w.WriteHeader(status)
    if len(body) > 0 {
        _, _ = w.Write(body)
    }
}

func cloneHeader(h http.Header) http.Header {
    out := make(http.Header, len(h))
    for k, vals := range h {
        out[k] = append([]string(nil), vals...)
    }
    return out
}
