package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/miekg/dns"
	log "github.com/sirupsen/logrus"
)

const resolvConf = "/etc/resolv.conf"

// ResolveSrv looks up the SRV record of the device, if one is configured, and
// replaces address and port with the preferred target.
func ResolveSrv(d *Device) error {
	if (SrvRecord{}) == d.Srv {
		return nil
	}

	log.WithFields(log.Fields{
		"SRV": d.Srv.Record,
	}).Info("SRV configuration detected")

	dnsServer, err := dnsServerFor(d.Srv)
	if err != nil {
		return err
	}

	dnsMsg := new(dns.Msg)
	dnsCli := new(dns.Client)

	dnsMsg.RecursionDesired = true
	dnsMsg.SetQuestion(dns.Fqdn(d.Srv.Record), dns.TypeSRV)
	r, _, err := dnsCli.Exchange(dnsMsg, dnsServer)
	if err != nil {
		return fmt.Errorf("resolving SRV record %s: %w", d.Srv.Record, err)
	}

	var best *dns.SRV
	for _, k := range r.Answer {
		s, ok := k.(*dns.SRV)
		if !ok {
			continue
		}
		if best == nil || s.Priority < best.Priority || (s.Priority == best.Priority && s.Weight > best.Weight) {
			best = s
		}
	}

	if best == nil {
		return fmt.Errorf("no SRV answer for %s", d.Srv.Record)
	}

	d.Address = strings.TrimRight(best.Target, ".")
	d.Port = strconv.Itoa(int(best.Port))
	if d.Name == "" {
		d.Name = d.Address
	}

	log.WithFields(log.Fields{
		"address": d.Address,
		"port":    d.Port,
	}).Info("resolved device from SRV record")

	return nil
}

func dnsServerFor(srv SrvRecord) (string, error) {
	if (DnsServer{}) != srv.Dns {
		dnsServer := net.JoinHostPort(srv.Dns.Address, strconv.Itoa(srv.Dns.Port))
		log.WithFields(log.Fields{
			"DnsServer": dnsServer,
		}).Info("Custom DNS config detected")
		return dnsServer, nil
	}

	conf, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil {
		return "", err
	}
	if len(conf.Servers) == 0 {
		return "", fmt.Errorf("no nameserver in %s", resolvConf)
	}

	return net.JoinHostPort(conf.Servers[0], conf.Port), nil
}
