package targets

import (
	"encoding/xml"
	"fmt"
	"os"
)

type nmapRun struct {
	XMLName xml.Name   `xml:"nmaprun"`
	Hosts   []nmapHost `xml:"host"`
}

type nmapHost struct {
	Addresses []struct {
		Addr string `xml:"addr,attr"`
	} `xml:"address"`
	Hostnames []struct {
		Name string `xml:"name,attr"`
		Type string `xml:"type,attr"`
	} `xml:"hostnames>hostname"`
	Ports []struct {
		PortID int `xml:"portid,attr"`
		State  struct {
			State string `xml:"state,attr"`
		} `xml:"state"`
	} `xml:"ports>port"`
}

// NmapFromXML extracts candidate URLs from an nmap XML report. Hosts are
// addressed by their user-supplied hostname when one exists (reverse
// lookups are ignored), otherwise by address; open ports matching the http
// or https port sets become URLs.
func NmapFromXML(path string, httpPorts, httpsPorts map[int]bool) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scan nmapRun
	if err := xml.Unmarshal(data, &scan); err != nil {
		return nil, fmt.Errorf("xml file is not nmap format: %w", err)
	}

	urls := make(map[string]bool)
	for _, host := range scan.Hosts {
		if len(host.Addresses) == 0 {
			continue
		}
		name := host.Addresses[0].Addr
		for _, h := range host.Hostnames {
			if h.Type == "user" {
				name = h.Name
				break
			}
		}
		for _, p := range host.Ports {
			if p.State.State != "open" {
				continue
			}
			urlForPort(name, p.PortID, httpPorts, httpsPorts, urls)
		}
	}
	return sorted(urls), nil
}
