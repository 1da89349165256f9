package compliance

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
)

// Resolver maps playbook device selectors (IP address list, site name) to a
// TargetSet of reachable devices.
type Resolver struct {
	api ControlPlane
}

// NewResolver returns a resolver backed by the given control plane.
func NewResolver(api ControlPlane) *Resolver {
	return &Resolver{api: api}
}

// ValidateIPv4List checks that every entry is a syntactically valid IPv4
// address. Any malformed entry is fatal.
func ValidateIPv4List(ips []string) error {
	for _, ip := range ips {
		parsed := net.ParseIP(ip)
		if parsed == nil || parsed.To4() == nil || strings.Count(ip, ".") != 3 {
			return &ValidationError{Reason: fmt.Sprintf("IP address %s is not valid", ip)}
		}
	}
	log.Printf("[DEBUG] Successfully validated IP address(es): %v", ips)
	return nil
}

// Resolve builds the TargetSet for one run entry. At least one of ipList and
// siteName must be supplied. When both are supplied the result is the devices
// from ipList that also belong to the site.
func (r *Resolver) Resolve(ctx context.Context, ipList []string, siteName string) (TargetSet, error) {
	if len(ipList) == 0 && siteName == "" {
		return nil, &ValidationError{Reason: "either the ip_address_list or the site_name must be provided"}
	}

	if len(ipList) > 0 {
		if err := ValidateIPv4List(ipList); err != nil {
			return nil, err
		}
		ipList = dedupe(ipList)
	}

	var targets TargetSet
	switch {
	case siteName != "" && len(ipList) > 0:
		siteTargets, err := r.resolveFromSite(ctx, siteName)
		if err != nil {
			return nil, err
		}
		ipTargets, err := r.resolveFromIPs(ctx, ipList)
		if err != nil {
			return nil, err
		}
		// IP-list devices must also belong to the named site.
		targets = make(TargetSet)
		for ip, instanceID := range ipTargets {
			if _, ok := siteTargets[ip]; ok {
				targets[ip] = instanceID
			}
		}
	case siteName != "":
		siteTargets, err := r.resolveFromSite(ctx, siteName)
		if err != nil {
			return nil, err
		}
		targets = siteTargets
	default:
		ipTargets, err := r.resolveFromIPs(ctx, ipList)
		if err != nil {
			return nil, err
		}
		targets = ipTargets
	}

	if len(targets) == 0 {
		return nil, &NotFoundError{
			Kind:   "device",
			Name:   selectorLabel(ipList, siteName),
			Detail: "no reachable devices matched the provided selectors",
		}
	}

	log.Printf("[DEBUG] Resolved target devices: %v", targets.IPs())
	return targets, nil
}

// resolveFromIPs queries the inventory per address. Lookup failures and
// unreachable devices are dropped with a log line, not fatal; an empty overall
// result is the caller's problem.
func (r *Resolver) resolveFromIPs(ctx context.Context, ipList []string) (TargetSet, error) {
	targets := make(TargetSet)
	for _, ip := range ipList {
		devices, err := r.api.DevicesByIP(ctx, ip)
		if err != nil {
			log.Printf("[ERROR] Error while fetching device id for device %s: %v", ip, err)
			continue
		}
		if len(devices) == 0 {
			log.Printf("[ERROR] Unable to retrieve device information for %s. Please ensure that the device exists and is reachable.", ip)
			continue
		}
		for _, device := range devices {
			if device.Reachability == Reachable {
				targets[ip] = device.InstanceID
			}
		}
	}
	return targets, nil
}

// resolveFromSite resolves the site and enumerates its membership. Unlike the
// IP path, any unreachable member is fatal immediately.
func (r *Resolver) resolveFromSite(ctx context.Context, siteName string) (TargetSet, error) {
	siteID, err := r.api.ResolveSite(ctx, siteName)
	if err != nil {
		log.Printf("[ERROR] Site %q does not exist in the control plane: %v", siteName, err)
		return nil, &NotFoundError{Kind: "site", Name: siteName, Detail: err.Error()}
	}

	members, err := r.api.SiteMembers(ctx, siteID)
	if err != nil {
		log.Printf("[ERROR] Unable to fetch the device(s) associated to the site %q: %v", siteName, err)
		return nil, &NotFoundError{Kind: "site", Name: siteName, Detail: "no reachable devices"}
	}

	targets := make(TargetSet)
	for _, device := range members {
		if device.Reachability != Reachable {
			msg := fmt.Sprintf("unable to get device id for device %s in site %s as its status is %s",
				device.IPAddress, siteName, device.Reachability)
			log.Printf("[CRITICAL] %s", msg)
			return nil, fmt.Errorf("%s", msg)
		}
		targets[device.IPAddress] = device.InstanceID
	}

	if len(targets) == 0 {
		return nil, &NotFoundError{Kind: "site", Name: siteName, Detail: "site does not have any reachable devices"}
	}
	return targets, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func selectorLabel(ipList []string, siteName string) string {
	if siteName != "" && len(ipList) > 0 {
		return fmt.Sprintf("%v in site %s", ipList, siteName)
	}
	if siteName != "" {
		return siteName
	}
	return fmt.Sprintf("%v", ipList)
}
