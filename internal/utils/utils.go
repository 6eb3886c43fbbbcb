package utils

import (
	"net"
	"net/http"
	"sort"
	"strings"
)

// GetClientIP returns the first X-Forwarded-For entry, falling back to the
// host part of RemoteAddr.
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For header
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// RemoveDuplicates keeps the first occurrence of every entry, preserving order.
func RemoveDuplicates(slice []string) []string {
	keys := make(map[string]bool)
	list := []string{}
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

// SortedUnique returns a sorted copy of slice without duplicates.
func SortedUnique(slice []string) []string {
	list := RemoveDuplicates(slice)
	sort.Strings(list)
	return list
}
