// Package render turns the resolved configuration into the two documents the
// wrapped services consume. Both renderers are pure: the documents are built
// as values and serialized, never string-pasted, so identical inputs always
// produce identical bytes.
package render

import (
	"encoding/json"
	"fmt"

	"moor/internal/config"
	"moor/internal/core/domain"
)

type xrayConfig struct {
	Log       xrayLog        `json:"log"`
	Inbounds  []xrayInbound  `json:"inbounds"`
	Outbounds []xrayOutbound `json:"outbounds"`
	Routing   xrayRouting    `json:"routing"`
}

type xrayLog struct {
	Access   string `json:"access"`
	Error    string `json:"error"`
	Loglevel string `json:"loglevel"`
}

type xrayInbound struct {
	Port           int                 `json:"port"`
	Protocol       string              `json:"protocol"`
	Settings       xrayInboundSettings `json:"settings"`
	StreamSettings xrayStreamSettings  `json:"streamSettings"`
	Sniffing       xraySniffing        `json:"sniffing"`
}

type xrayInboundSettings struct {
	Clients    []xrayClient `json:"clients"`
	Decryption string       `json:"decryption"`
}

type xrayClient struct {
	ID   string `json:"id"`
	Flow string `json:"flow,omitempty"`
}

type xrayStreamSettings struct {
	Network     string          `json:"network"`
	Security    string          `json:"security"`
	TLSSettings xrayTLSSettings `json:"tlsSettings"`
}

type xrayTLSSettings struct {
	ServerName   string            `json:"serverName"`
	ALPN         []string          `json:"alpn"`
	Certificates []xrayCertificate `json:"certificates"`
}

type xrayCertificate struct {
	CertificateFile string `json:"certificateFile"`
	KeyFile         string `json:"keyFile"`
}

type xraySniffing struct {
	Enabled      bool     `json:"enabled"`
	DestOverride []string `json:"destOverride"`
}

type xrayOutbound struct {
	Protocol string `json:"protocol"`
	Tag      string `json:"tag"`
}

type xrayRouting struct {
	DomainStrategy string     `json:"domainStrategy"`
	Rules          []xrayRule `json:"rules"`
}

type xrayRule struct {
	Type        string   `json:"type"`
	Protocol    []string `json:"protocol"`
	OutboundTag string   `json:"outboundTag"`
}

// Xray renders the proxy-service configuration: one TLS inbound for the
// configured client, direct and block outbounds, and a rule that drops
// BitTorrent traffic on the floor.
func Xray(cfg *config.Config, bundle domain.CertificateBundle) ([]byte, error) {
	if bundle.FullchainFile == "" || bundle.KeyFile == "" {
		return nil, &domain.TemplateRenderError{
			Target: "xray",
			Err:    fmt.Errorf("certificate paths not resolved for %q", bundle.Domain),
		}
	}

	doc := xrayConfig{
		Log: xrayLog{
			Access:   "/var/log/xray/access.log",
			Error:    "/var/log/xray/error.log",
			Loglevel: "warning",
		},
		Inbounds: []xrayInbound{{
			Port:     cfg.Port,
			Protocol: cfg.Protocol,
			Settings: xrayInboundSettings{
				Clients:    []xrayClient{{ID: cfg.ClientID, Flow: cfg.Flow}},
				Decryption: "none",
			},
			StreamSettings: xrayStreamSettings{
				Network:  "tcp",
				Security: "tls",
				TLSSettings: xrayTLSSettings{
					ServerName: cfg.Domain,
					ALPN:       []string{"h2", "http/1.1"},
					Certificates: []xrayCertificate{{
						CertificateFile: bundle.FullchainFile,
						KeyFile:         bundle.KeyFile,
					}},
				},
			},
			Sniffing: xraySniffing{
				Enabled:      true,
				DestOverride: []string{"http", "tls", "quic"},
			},
		}},
		Outbounds: []xrayOutbound{
			{Protocol: "freedom", Tag: "direct"},
			{Protocol: "blackhole", Tag: "block"},
		},
		Routing: xrayRouting{
			DomainStrategy: "IPIfNonMatch",
			Rules: []xrayRule{{
				Type:        "field",
				Protocol:    []string{"bittorrent"},
				OutboundTag: "block",
			}},
		},
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, &domain.TemplateRenderError{Target: "xray", Err: err}
	}
	return append(out, '\n'), nil
}
