package targets

import (
	"encoding/xml"
	"fmt"
	"os"
)

type nessusClientData struct {
	XMLName xml.Name `xml:"NessusClientData_v2"`
	Hosts   []struct {
		Name  string `xml:"name,attr"`
		Items []struct {
			Protocol string `xml:"protocol,attr"`
			Port     int    `xml:"port,attr"`
		} `xml:"ReportItem"`
	} `xml:"Report>ReportHost"`
}

// NessusFromXML extracts candidate URLs from a Nessus v2 export: every TCP
// report item on an http or https port becomes a URL.
func NessusFromXML(path string, httpPorts, httpsPorts map[int]bool) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scan nessusClientData
	if err := xml.Unmarshal(data, &scan); err != nil {
		return nil, fmt.Errorf("xml file is not NessusClientData_v2 format: %w", err)
	}

	urls := make(map[string]bool)
	for _, host := range scan.Hosts {
		for _, item := range host.Items {
			if item.Protocol != "tcp" {
				continue
			}
			urlForPort(host.Name, item.Port, httpPorts, httpsPorts, urls)
		}
	}
	return sorted(urls), nil
}
