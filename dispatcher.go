package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

type EventListener struct {
	ch chan []byte
}

type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
}

type discoveryTopicSwitch struct {
	Command_topic string          `json:"command_topic"`
	State_topic   string          `json:"state_topic"`
	Name          string          `json:"name"`
	Payload_on    string          `json:"payload_on"`
	Payload_off   string          `json:"payload_off"`
	Icon          string          `json:"icon,omitempty"`
	Unique_id     string          `json:"unique_id"`
	Avail         string          `json:"availability_topic,omitempty"`
	Device        discoveryDevice `json:"device"`
}

type discoveryTopicNumber struct {
	Command_topic string          `json:"command_topic"`
	State_topic   string          `json:"state_topic"`
	Name          string          `json:"name"`
	Min           int             `json:"min"`
	Max           int             `json:"max"`
	Step          int             `json:"step"`
	Mode          string          `json:"mode,omitempty"`
	Icon          string          `json:"icon,omitempty"`
	Unique_id     string          `json:"unique_id"`
	Avail         string          `json:"availability_topic,omitempty"`
	Device        discoveryDevice `json:"device"`
}

// publisher is the part of mqtt.Client the dispatcher needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// EventDispatcher fans events out to websocket listeners and forwards
// "mqtt/<topic>" events to the broker.
type EventDispatcher struct {
	listeners  map[*EventListener]bool
	broadcast  chan []byte
	register   chan *EventListener
	deregister chan *EventListener

	// set before the controller starts, never changed afterwards
	mqtt publisher
}

func newEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *EventListener),
		deregister: make(chan *EventListener),
		listeners:  make(map[*EventListener]bool),
	}
}

type broadcastEvent struct {
	Source string      `json:"source"`
	Data   interface{} `json:"data"`
}

func serializeEvent(source string, data interface{}) []byte {
	msg, _ := json.Marshal(&broadcastEvent{Source: source, Data: data})
	return msg
}

func (d *EventDispatcher) broadcastEvent(source string, data interface{}) {
	if topic, ok := strings.CutPrefix(source, "mqtt/"); ok {
		if d.mqtt != nil {
			value := fmt.Sprintf("%v", data)
			log.Infof("MQTT PUB: %s -> %s", topic, value)
			_ = d.mqtt.Publish(topic, 0, true, value)
		}
		return
	}

	select {
	case d.broadcast <- serializeEvent(source, data):
	default:
		log.Warnf("event dispatcher backlog full, dropping %s event", source)
	}
}

func (d *EventDispatcher) run() {
	for {
		select {
		case listener := <-d.register:
			d.listeners[listener] = true
		case listener := <-d.deregister:
			if _, ok := d.listeners[listener]; ok {
				delete(d.listeners, listener)
				close(listener.ch)
			}
		case message := <-d.broadcast:
			for listener := range d.listeners {
				select {
				case listener.ch <- message:
				default:
					close(listener.ch)
					delete(d.listeners, listener)
				}
			}
		}
	}
}

// MqttBridge connects the controller to a broker.
// topics: <instance>/<channel>/cmnd (in), <instance>/<channel>/stat (out),
// <instance>/available (will)
type MqttBridge struct {
	instance string
	ctrl     *Controller
	client   mqtt.Client
}

func (b *MqttBridge) availableTopic() string {
	return b.instance + "/available"
}

// handle messages
func (b *MqttBridge) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	log.Infof("MQTT: Received message: %s from topic: %s", msg.Payload(), msg.Topic())

	ts := strings.Split(msg.Topic(), "/")
	if len(ts) != 3 || ts[0] != b.instance || ts[2] != "cmnd" {
		log.Errorf("mqtt received unexpected topic '%s'", msg.Topic())
		return
	}

	if _, err := b.ctrl.SubmitPayload(ts[1], string(msg.Payload()), "mqtt"); err != nil {
		log.Errorf("mqtt %s: %v", msg.Topic(), err)
	}
}

// set up for async connect/reconnect (for robustness across restarts on either side)
func ConnectMqtt(url, user, password, instance string, ctrl *Controller, d *EventDispatcher) *MqttBridge {
	b := &MqttBridge{instance: instance, ctrl: ctrl}

	co := mqtt.NewClientOptions()
	co.AddBroker(url)
	co.SetUsername(user)
	co.SetPassword(password)
	co.SetClientID(instance + "_mqtt_client")
	co.SetOnConnectHandler(b.onConnect)
	co.SetConnectionLostHandler(func(cl mqtt.Client, err error) { log.Info("MQTT: Connection lost: ", err.Error()) })
	co.SetReconnectingHandler(func(cl mqtt.Client, _ *mqtt.ClientOptions) { log.Info("MQTT: Trying to reconnect") })
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(time.Minute)
	co.SetAutoReconnect(true)
	co.SetMaxReconnectInterval(5 * time.Minute)
	co.SetWill(b.availableTopic(), "offline", 0, true)

	b.client = mqtt.NewClient(co)
	d.mqtt = b.client

	// start trying to connect - resolved in callbacks
	log.Info("MQTT: Start trying to connect as " + co.ClientID)
	b.client.Connect()
	return b
}

// Disconnect marks the instance offline and closes the connection.
func (b *MqttBridge) Disconnect() {
	if b.client.IsConnected() {
		t := b.client.Publish(b.availableTopic(), 0, true, "offline")
		t.WaitTimeout(time.Second)
	}
	b.client.Disconnect(250)
}

// on connect, subscribe to command topics and announce ourselves
func (b *MqttBridge) onConnect(cl mqtt.Client) {
	log.Info("MQTT: Connected, subscribing...")

	topic := b.instance + "/+/cmnd"
	t := cl.Subscribe(topic, 0, b.messageHandler)
	t.Wait()
	if t.Error() != nil {
		log.Errorf("MQTT: failed to subscribe for %s: %v", topic, t.Error())
	} else {
		log.Infof("MQTT: subscribe succeeded for %s", topic)
	}

	// declaring as alive
	t = cl.Publish(b.availableTopic(), 0, true, "online")
	t.Wait()
	if t.Error() != nil {
		log.Errorf("MQTT: failed to publish 'available' status: %v", t.Error())
	} else {
		log.Infof("MQTT: published 'available' status as 'online'")
	}

	for _, m := range discoveryMessages(b.instance) {
		log.Debugf("MQTT PUB %s: %s", m.topic, m.payload)
		_ = cl.Publish(m.topic, 0, true, m.payload)
	}

	// republish the assumed state so retained stat topics survive a broker restart
	st := b.ctrl.State()
	if !st.UpdatedAt.IsZero() {
		for _, ch := range channels {
			_ = cl.Publish(b.instance+"/"+ch.Name+"/stat", 0, true, formatValue(&ch, channelValue(st, ch.Name)))
		}
	}
}

type discoveryMessage struct {
	topic   string
	payload []byte
}

// discoveryMessages builds the Home Assistant entities for every channel:
// switches for ON/OFF channels, numbers for levels.
func discoveryMessages(instance string) []discoveryMessage {
	a := instance + "/available"
	dev := discoveryDevice{
		Identifiers:  []string{instance},
		Name:         "Fireplace",
		Model:        "433MHz remote",
		Manufacturer: "fireplacerf",
	}

	var out []discoveryMessage
	for _, ch := range channels {
		uid := instance + "-" + ch.Name
		base := instance + "/" + ch.Name

		var (
			component string
			v         interface{}
		)
		switch ch.Kind {
		case SwitchChannel:
			component = "switch"
			v = &discoveryTopicSwitch{base + "/cmnd", base + "/stat", ch.Label, "ON", "OFF", ch.Icon, uid, a, dev}
		default:
			component = "number"
			v = &discoveryTopicNumber{base + "/cmnd", base + "/stat", ch.Label, ch.Min, ch.Max, 1, "slider", ch.Icon, uid, a, dev}
		}

		j, err := json.Marshal(v)
		if err != nil {
			log.Errorf("MQTT: discovery for %s: %v", ch.Name, err)
			continue
		}
		out = append(out, discoveryMessage{"homeassistant/" + component + "/" + instance + "/" + uid + "/config", j})
	}
	return out
}

func channelValue(st State, channel string) int {
	b2i := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}
	switch channel {
	case "power":
		return b2i(st.Power)
	case "pilot":
		return b2i(st.Pilot)
	case "flame":
		return st.Flame
	case "light":
		return st.Light
	case "fan":
		return st.Fan
	case "aux2":
		return st.Aux2
	}
	return 0
}
