package vfs

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/koustreak/bucketfs/internal/filestore"
)

// Option bag keys recognized by ParseWriteOptions.
const (
	OptionHeaders     = "headers"
	OptionContentType = "content-type"
	OptionContentMD5  = "content-md5"
	OptionVisibility  = "visibility"
	OptionSize        = "size"
	OptionMimetype    = "mimetype"
)

// metadataOptions maps declared-metadata option keys to the request header
// they are sent as.
var metadataOptions = [...]struct {
	option string
	header string
}{
	{option: OptionMimetype, header: filestore.HeaderContentType},
	{option: OptionSize, header: filestore.HeaderContentLength},
}

// WriteOptions are the recognized per-write settings. Zero values mean
// "not set".
type WriteOptions struct {
	// Headers are sent with the request as-is.
	Headers map[string]string

	// ContentType wins over Mimetype and over sniffing.
	ContentType string

	// ContentMD5 is the base64 MD5 of the payload. Setting it turns off the
	// driver's own checksum.
	ContentMD5 string

	Visibility Visibility

	// Size is the declared payload size in bytes.
	Size int64

	// Mimetype is the declared content type.
	Mimetype string
}

// ParseWriteOptions reads a loosely typed option bag. Unrecognized keys are
// ignored; recognized keys with a value of the wrong type are rejected.
func ParseWriteOptions(bag map[string]any) (WriteOptions, error) {
	var o WriteOptions
	for key, raw := range bag {
		var err error
		switch strings.ToLower(key) {
		case OptionHeaders:
			o.Headers, err = asHeaders(raw)
		case OptionContentType:
			o.ContentType, err = asString(key, raw)
		case OptionContentMD5:
			o.ContentMD5, err = asString(key, raw)
		case OptionVisibility:
			var s string
			if s, err = asString(key, raw); err == nil && s != "" {
				o.Visibility, err = ParseVisibility(s)
			}
		case OptionSize:
			o.Size, err = asInt64(key, raw)
		case OptionMimetype:
			o.Mimetype, err = asString(key, raw)
		}
		if err != nil {
			return WriteOptions{}, err
		}
	}
	return o, nil
}

// declared returns the declared-metadata value for one metadataOptions key.
func (o WriteOptions) declared(option string) string {
	switch option {
	case OptionMimetype:
		return o.Mimetype
	case OptionSize:
		if o.Size > 0 {
			return strconv.FormatInt(o.Size, 10)
		}
	}
	return ""
}

// putOptions builds the backend request options for a write of contents.
// Visibility falls back to def; with neither set no ACL is sent.
func (o WriteOptions) putOptions(contents []byte, def Visibility) filestore.PutOptions {
	headers := make(map[string]string, len(o.Headers)+3)
	for k, v := range o.Headers {
		headers[http.CanonicalHeaderKey(k)] = v
	}
	for _, m := range metadataOptions {
		if v := o.declared(m.option); v != "" {
			headers[http.CanonicalHeaderKey(m.header)] = v
		}
	}
	contentType := http.CanonicalHeaderKey(filestore.HeaderContentType)
	if o.ContentType != "" {
		headers[contentType] = o.ContentType
	}
	if headers[contentType] == "" && len(contents) > 0 {
		headers[contentType] = mimetype.Detect(contents).String()
	}

	opts := filestore.PutOptions{Headers: headers}
	if o.ContentMD5 != "" {
		headers[http.CanonicalHeaderKey(filestore.HeaderContentMD5)] = o.ContentMD5
		opts.DisableChecksum = true
	}

	vis := o.Visibility
	if vis == "" {
		vis = def
	}
	if vis != "" {
		opts.ACL = ACLFor(vis)
	}
	return opts
}

func asString(key string, raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case Visibility:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", invalidOption(key, raw)
}

func asInt64(key string, raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return n, nil
		}
	}
	return 0, invalidOption(key, raw)
}

func asHeaders(raw any) (map[string]string, error) {
	switch v := raw.(type) {
	case map[string]string:
		return v, nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, val := range v {
			s, err := asString(OptionHeaders+"."+k, val)
			if err != nil {
				return nil, err
			}
			out[k] = s
		}
		return out, nil
	case http.Header:
		out := make(map[string]string, len(v))
		for k := range v {
			out[k] = v.Get(k)
		}
		return out, nil
	}
	return nil, invalidOption(OptionHeaders, raw)
}
