package imgmqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	types "github.com/stronnag/nrf2jpeg/pkg/types"
)

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	glog.V(1).Infoln("mqtt: connected")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	glog.Warningf("mqtt: connect lost: %v\n", err)
}

// Publisher sends one payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type Broker struct {
	Scheme string
	Host   string
	Port   int
	Topic  string
	User   string
	Passwd string
	Cafile string
}

func (b *Broker) URL() string {
	mpath := ""
	if b.Scheme == "ws" || b.Scheme == "wss" {
		mpath = "/mqtt"
	}
	return fmt.Sprintf("%s://%s:%d%s", b.Scheme, b.Host, b.Port, mpath)
}

/* Test brokers
   test.mosquitto.org 1883, 8883 8080, 8081 (ws)
   broker.hivemq.com  1883, 8000 (ws)
   broker.emqx.io    1883, 8883, 8083, 8084 (ws)
*/

// ParseBroker decodes mqtt://[user[:pass]@]broker[:port]/topic[?cafile=file]
func ParseBroker(uri string) (Broker, error) {
	var b Broker
	u, err := url.Parse(uri)
	if err != nil {
		return b, errors.Wrap(err, "broker")
	}

	b.Host = u.Hostname()
	b.Port, _ = strconv.Atoi(u.Port())
	if len(u.Path) > 0 {
		b.Topic = strings.Trim(u.Path, "/")
	}
	if up := u.User; up != nil {
		b.User = up.Username()
		b.Passwd, _ = up.Password()
	}
	if ca := u.Query()["cafile"]; len(ca) > 0 {
		b.Cafile = ca[0]
	}
	if b.Host == "" {
		b.Host = "broker.emqx.io"
	}
	if b.Topic == "" {
		b.Topic = fmt.Sprintf("org/nrf2jpeg/images/_%x", rand.Int())
		fmt.Fprintf(os.Stderr, "using random topic \"%s\"\n", b.Topic)
	}
	if b.Port == 0 {
		b.Port = 1883
	}

	switch u.Scheme {
	case "ws", "wss":
		b.Scheme = u.Scheme
	case "mqtts", "ssl":
		b.Scheme = "ssl"
	default:
		b.Scheme = "tcp"
	}
	if b.Cafile != "" && b.Scheme == "tcp" {
		b.Scheme = "ssl"
	}
	return b, nil
}

func NewTlsConfig(b Broker) (*tls.Config, error) {
	if b.Scheme == "tcp" || b.Scheme == "ws" {
		return nil, nil
	}
	tlsconf := &tls.Config{RootCAs: nil, ClientAuth: tls.NoClientCert}
	if b.Cafile != "" {
		certpool := x509.NewCertPool()
		ca, err := os.ReadFile(b.Cafile)
		if err != nil {
			return nil, errors.Wrap(err, "cafile")
		}
		certpool.AppendCertsFromPEM(ca)
		tlsconf.RootCAs = certpool
	}
	if len(os.Getenv("NOVERIFYSSL")) > 0 {
		tlsconf.InsecureSkipVerify = true
	}
	return tlsconf, nil
}

type MQTTClient struct {
	client mqtt.Client
	topic  string
}

func NewMQTTClient(uri string) (*MQTTClient, error) {
	b, err := ParseBroker(uri)
	if err != nil {
		return nil, err
	}
	tlsconf, err := NewTlsConfig(b)
	if err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.URL())
	opts.SetTLSConfig(tlsconf)
	opts.SetClientID(fmt.Sprintf("%x", rand.Int63()))
	opts.SetUsername(b.User)
	opts.SetPassword(b.Passwd)
	opts.SetConnectTimeout(10 * time.Second)
	opts.OnConnect = connectHandler
	opts.OnConnectionLost = connectLostHandler

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "connect %s", b.URL())
	}
	return &MQTTClient{client: client, topic: b.Topic}, nil
}

func (m *MQTTClient) Topic() string {
	return m.topic
}

func (m *MQTTClient) Publish(topic string, payload []byte) error {
	token := m.client.Publish(topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

func (m *MQTTClient) Close() {
	m.client.Disconnect(250)
}

// ImageTopic is <topic>/<stem>_<n> for an output file.
func ImageTopic(topic string, filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return topic + "/" + name
}

// PublishError records a failed publish of one image.
type PublishError struct {
	Index int
	Err   error
}

func (e PublishError) Error() string {
	return fmt.Sprintf("publish image %d: %v", e.Index, e.Err)
}

func (e PublishError) Unwrap() error { return e.Err }

// PublishImages sends every successfully written image. Failures are
// returned in result order and do not stop the rest.
func PublishImages(p Publisher, topic string, results []types.ImageResult) []PublishError {
	var errs []PublishError
	for _, r := range results {
		if !r.OK() || r.Data == nil {
			continue
		}
		if err := p.Publish(ImageTopic(topic, r.Filename), r.Data); err != nil {
			errs = append(errs, PublishError{Index: r.Index, Err: err})
		}
	}
	return errs
}
