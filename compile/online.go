package compile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dsiganos/blutil/preprocess"
)

// DefaultURL is the public online compile service.
const DefaultURL = "http://uwterminalx.no-ip.org/xcompile.php?JSON=1"

// Online compiles source through the hosted compile service. It resolves
// the service's compiler selector from the module's model and firmware code
// via the devices.json catalogue, expands includes locally (the service
// sees a single flat file), and writes the returned bytecode next to the
// source.
type Online struct {
	// URL of the compile service. Empty means DefaultURL.
	URL string
	// DevicesPath locates devices.json, mapping each model to its
	// [index, firmware code] pairs.
	DevicesPath string
	// Params reads module parameters 0 and 3.
	Params ParamReader
	// Client overrides the HTTP client. Nil means http.DefaultClient.
	Client *http.Client
	Logger *slog.Logger
}

// serviceError is the JSON body the service returns on failure.
type serviceError struct {
	Result      string `json:"Result"`
	Error       string `json:"Error"`
	Description string `json:"Description"`
}

func (o *Online) Compile(path string) (string, error) {
	o.logger().Info("using the online compiler")

	selector, err := o.selector()
	if err != nil {
		return "", err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	expanded, err := preprocess.Expand(string(src), filepath.Dir(path))
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("file_XComp", selector); err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	part, err := form.CreateFormFile("file_sB", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if _, err := part.Write([]byte(expanded)); err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	url := o.URL
	if url == "" {
		url = DefaultURL
	}
	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Post(url, form.FormDataContentType(), &body)
	if err != nil {
		return "", fmt.Errorf("online compiler request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("online compiler response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		var svc serviceError
		if json.Unmarshal(data, &svc) == nil && svc.Result != "" {
			if svc.Result == "-9" {
				return "", fmt.Errorf("%w: %s:\n%s", ErrCompileFailed, svc.Error, svc.Description)
			}
			return "", fmt.Errorf("%w: online compiler error code %s: %s", ErrCompileFailed, svc.Result, svc.Error)
		}
		return "", fmt.Errorf("%w: online compiler returned %s", ErrCompileFailed, resp.Status)
	}

	out := Artifact(path)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return out, nil
}

// selector resolves the service's compiler name "<model>_<index>" from the
// module's reported model and firmware code.
func (o *Online) selector() (string, error) {
	raw, err := os.ReadFile(o.DevicesPath)
	if err != nil {
		return "", fmt.Errorf("load device catalogue: %w", err)
	}
	var devices map[string][][]string
	if err := json.Unmarshal(raw, &devices); err != nil {
		return "", fmt.Errorf("parse device catalogue: %w", err)
	}

	model, err := o.Params.ReadParam(0)
	if err != nil {
		return "", fmt.Errorf("read model: %w", err)
	}
	firmware, err := o.Params.ReadParam(3)
	if err != nil {
		return "", fmt.Errorf("read firmware code: %w", err)
	}

	entries, ok := devices[model]
	if !ok {
		return "", fmt.Errorf("model %q not in device catalogue %s", model, o.DevicesPath)
	}
	for _, entry := range entries {
		if len(entry) == 2 && entry[1] == firmware {
			return model + "_" + entry[0], nil
		}
	}
	return "", fmt.Errorf("firmware %q for model %q not in device catalogue %s", firmware, model, o.DevicesPath)
}

func (o *Online) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}
