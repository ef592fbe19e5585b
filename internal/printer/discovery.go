package printer

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// --- Discovery ---

const rawPrintPort = 9100

// Discover scans the local /24 subnet for hosts answering on the raw print
// port and returns their addresses. It does not touch configuration; the
// management surface decides what to do with the results.
func Discover() ([]string, error) {
	localIP, err := detectLocalIP()
	if err != nil {
		return nil, err
	}
	parts := strings.Split(localIP, ".")
	subnet := strings.Join(parts[:3], ".")

	ipChan := make(chan string, 256)
	foundChan := make(chan string, 256)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ip := range ipChan {
				if probe(ip, rawPrintPort) {
					foundChan <- ip
				}
			}
		}()
	}

	for i := 1; i <= 254; i++ {
		ipChan <- fmt.Sprintf("%s.%d", subnet, i)
	}
	close(ipChan)

	go func() {
		wg.Wait()
		close(foundChan)
	}()

	var found []string
	for ip := range foundChan {
		found = append(found, fmt.Sprintf("%s:%d", ip, rawPrintPort))
	}
	return found, nil
}

func detectLocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String(), nil
		}
	}
	return "", fmt.Errorf("no local IPv4 address found")
}

func probe(ip string, port int) bool {
	addr := fmt.Sprintf("%s:%d", ip, port)
	conn, err := net.DialTimeout("tcp", addr, 300*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
