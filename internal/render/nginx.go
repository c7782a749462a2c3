package render

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"moor/internal/config"
	"moor/internal/core/domain"
)

// compressTypes is shared by gzip and brotli; binary payloads are excluded
// on purpose, they only get bigger.
const compressTypes = "text/plain text/css application/json application/javascript text/xml application/xml application/xml+rss text/javascript image/svg+xml"

var nginxTemplate = template.Must(template.New("nginx").Parse(`server {
    listen {{.HTTPPort}};
    listen [::]:{{.HTTPPort}};
    server_name {{.Domain}};

    access_log /var/log/nginx/{{.Domain}}.access.log;
    error_log /var/log/nginx/{{.Domain}}.error.log;

    location /.well-known/acme-challenge/ {
        root {{.WebRoot}};
        default_type "text/plain";
    }

    location / {
        return 301 https://$host$request_uri;
    }

    gzip on;
    gzip_vary on;
    gzip_types {{.CompressTypes}};

    brotli on;
    brotli_types {{.CompressTypes}};
}
`))

type nginxParams struct {
	Domain        string
	HTTPPort      int
	WebRoot       string
	CompressTypes string
}

// Nginx renders the HTTP front configuration: the ACME challenge path served
// from the webroot, and a blanket redirect of everything else to HTTPS.
func Nginx(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer
	err := nginxTemplate.Execute(&buf, nginxParams{
		Domain:        cfg.Domain,
		HTTPPort:      cfg.HTTPPort,
		WebRoot:       cfg.WebRoot,
		CompressTypes: compressTypes,
	})
	if err != nil {
		return nil, &domain.TemplateRenderError{Target: "nginx", Err: err}
	}
	return buf.Bytes(), nil
}

// WriteFile overwrites the target config. The documents are regenerated on
// every start and treated as disposable, so a plain overwrite is enough.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
