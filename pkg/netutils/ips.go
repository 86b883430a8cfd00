// Package netutils discovers the host address advertised to the chart when
// the orchestrator runs outside of CI, where the deployed devices must reach
// back to the developer's machine.
package netutils

import (
	"fmt"
	"net"
	"strings"
)

// FirstValidAddress returns the first routable IPv4 address of the host. When
// networkInterface is empty the first valid interface wins.
func FirstValidAddress(networkInterface string) (string, error) {
	ipnet, err := firstValidIPNetFor(networkInterface)
	if err != nil {
		return "", fmt.Errorf("get ipnet for interface %s: %w", networkInterface, err)
	}
	if ipnet.IP.To4() == nil {
		return "", fmt.Errorf("interface %s has no ipv4 addresses", networkInterface)
	}
	return ipnet.IP.String(), nil
}

func firstValidIPNetFor(networkInterface string) (*net.IPNet, error) {
	ifs, err := listValidInterfaces()
	if err != nil {
		return nil, fmt.Errorf("list valid network interfaces: %w", err)
	}
	if len(ifs) == 0 {
		return nil, fmt.Errorf("no valid network interfaces found on this machine")
	}
	if networkInterface == "" {
		return firstValidIPNet(ifs[0])
	}
	for _, i := range ifs {
		if i.Name == networkInterface {
			return firstValidIPNet(i)
		}
	}
	var ifNames []string
	for _, i := range ifs {
		ifNames = append(ifNames, i.Name)
	}
	return nil, fmt.Errorf("interface %s not found or is not valid. The following interfaces were detected: %s", networkInterface, strings.Join(ifNames, ", "))
}

// listValidInterfaces returns a list of valid network interfaces for the host.
func listValidInterfaces() ([]net.Interface, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list network interfaces: %w", err)
	}
	validIfs := []net.Interface{}
	for _, i := range ifs {
		if !isValidInterface(i) {
			continue
		}
		validIfs = append(validIfs, i)
	}
	return validIfs, nil
}

func isValidInterface(i net.Interface) bool {
	// skip pod-network and tunnel interfaces when running on a cluster node
	switch {
	case strings.HasPrefix(i.Name, "veth"):
		return false
	case strings.HasPrefix(i.Name, "cali"):
		return false
	case strings.HasPrefix(i.Name, "docker"):
		return false
	case i.Name == "minikube":
		return false
	}
	return hasValidIPNet(i)
}

func hasValidIPNet(i net.Interface) bool {
	ipnet, err := firstValidIPNet(i)
	return err == nil && ipnet != nil
}

func firstValidIPNet(i net.Interface) (*net.IPNet, error) {
	addresses, err := i.Addrs()
	if err != nil {
		return nil, fmt.Errorf("get addresses: %w", err)
	}
	for _, a := range addresses {
		// check the address type and skip if loopback
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet, nil
			}
		}
	}
	return nil, fmt.Errorf("could not find any non-local ipv4 addresses")
}
