// Package httpclient is the outbound HTTP adapter used to talk to model
// sidecars. It resolves paths against a base URL, applies default headers and
// auth, encodes JSON and multipart bodies and classifies failures by status.
//
//	client, err := httpclient.New(httpclient.Config{
//	    Name:    "whisper",
//	    BaseURL: "http://localhost:8387",
//	    Timeout: 2 * time.Minute,
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/transcribe",
//	    Body: &httpclient.MultipartBody{
//	        Fields: map[string]string{"language": "en"},
//	        Files:  []httpclient.FileField{{FieldName: "audio", FileName: "audio.wav", Reader: f}},
//	    },
//	})
package httpclient
