package kraken

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	appconfig "krakenflow/config"
	"krakenflow/internal/channel"
	"krakenflow/logger"
	"krakenflow/models"
	"krakenflow/models/publication"
	"krakenflow/models/request"
	"krakenflow/models/response"
)

const component = "kraken_ws_reader"

// frameWriter is the part of a websocket connection used for sending.
type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Kraken_WS_Reader subscribes to the configured public channels for a set of
// pairs and forwards every decoded publication to the publication channel.
type Kraken_WS_Reader struct {
	config   *appconfig.Config
	channels *channel.Channels
	ctx      context.Context
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	log      *logger.Log
	pairs    []models.CurrencyPair
	localIP  string
	rest     *RestClient
	limiter  *rate.Limiter

	writeMu sync.Mutex
	reqID   int64

	// channelID -> channel name and pair of acknowledged subscriptions
	subscriptions sync.Map
}

type subscriptionInfo struct {
	name string
	pair string
}

func Kraken_WS_NewReader(cfg *appconfig.Config, ch *channel.Channels, pairs []models.CurrencyPair, localIP string) *Kraken_WS_Reader {
	rps := cfg.Reader.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Reader.RateLimit.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &Kraken_WS_Reader{
		config:   cfg,
		channels: ch,
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
		pairs:    pairs,
		localIP:  localIP,
		rest:     NewRestClient(cfg, localIP),
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Kraken_WS_Start validates the pairs (when enabled) and starts streaming.
// The connection is re-established until ctx is cancelled.
func (r *Kraken_WS_Reader) Kraken_WS_Start(ctx context.Context) error {
	cfg := r.config.Source.Kraken.Websocket
	log := r.log.WithComponent(component).WithFields(logger.Fields{"operation": "Kraken_WS_Start", "local_ip": r.localIP})
	if !cfg.Enabled {
		log.Warn("kraken websocket is disabled")
		return fmt.Errorf("kraken websocket is disabled")
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("Kraken_WS_Reader already running")
	}
	r.running = true
	r.ctx = ctx
	r.mu.Unlock()

	if r.config.Reader.ValidatePairs {
		r.pairs = r.validatePairs(r.pairs)
	}
	if len(r.pairs) == 0 && !hasPrivate(cfg.Subscriptions) {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return fmt.Errorf("no valid pairs to subscribe")
	}

	log.WithFields(logger.Fields{"pairs": pairNames(r.pairs)}).Info("starting kraken websocket reader")
	r.wg.Add(1)
	go r.stream(cfg.URL)
	return nil
}

func (r *Kraken_WS_Reader) Kraken_WS_Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	r.log.WithComponent(component).Info("stopping kraken websocket reader")
	r.wg.Wait()
	r.log.WithComponent(component).Info("kraken websocket reader stopped")
}

func hasPrivate(subs []appconfig.SubscriptionConfig) bool {
	for _, s := range subs {
		if appconfig.IsPrivateChannel(s.Name) {
			return true
		}
	}
	return false
}

func pairNames(pairs []models.CurrencyPair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.String()
	}
	return out
}

func (r *Kraken_WS_Reader) stream(wsURL string) {
	defer r.wg.Done()
	log := r.log.WithComponent(component).WithFields(logger.Fields{"local_ip": r.localIP, "worker": "stream"})

	for {
		if r.ctx.Err() != nil {
			return
		}

		dialer := websocket.Dialer{
			NetDialContext:   localDialer(r.localIP).DialContext,
			HandshakeTimeout: r.config.Reader.Timeout,
		}
		conn, _, err := dialer.DialContext(r.ctx, wsURL, nil)
		if err != nil {
			log.WithError(err).Warn("failed to connect websocket, retrying")
			if !r.sleep(r.config.Reader.ReconnectDelay) {
				return
			}
			continue
		}
		log.WithFields(logger.Fields{"url": wsURL}).Info("websocket connected")

		if err := r.subscribeAll(conn); err != nil {
			log.WithError(err).Warn("failed to subscribe")
			conn.Close()
			if !r.sleep(r.config.Reader.ReconnectDelay) {
				return
			}
			continue
		}

		done := make(chan struct{})
		go r.keepalive(conn, done)

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				close(done)
				conn.Close()
				if r.ctx.Err() != nil {
					return
				}
				log.WithError(err).Warn("websocket read error, reconnecting")
				break
			}
			r.processMessage(msg)
		}

		r.subscriptions.Range(func(k, _ any) bool {
			r.subscriptions.Delete(k)
			return true
		})
		if !r.sleep(r.config.Reader.ReconnectDelay) {
			return
		}
	}
}

func (r *Kraken_WS_Reader) sleep(d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-time.After(d):
		return true
	case <-r.ctx.Done():
		return false
	}
}

// keepalive pings on every interval and unsubscribes and closes the
// connection once the reader is cancelled.
func (r *Kraken_WS_Reader) keepalive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(r.config.Reader.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.ctx.Done():
			r.unsubscribeAll(conn)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
			return
		case <-ticker.C:
			if err := r.send(conn, request.NewPing().WithReqID(r.nextReqID())); err != nil {
				r.log.WithComponent(component).WithError(err).Warn("failed to send ping")
			}
		}
	}
}

func (r *Kraken_WS_Reader) nextReqID() int64 {
	return atomic.AddInt64(&r.reqID, 1)
}

// send marshals req and writes it as one text frame, waiting on the outbound
// rate limiter first.
func (r *Kraken_WS_Reader) send(conn frameWriter, req request.Request) error {
	if err := r.limiter.Wait(r.ctx); err != nil {
		return err
	}
	data, err := req.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", req.EventName(), err)
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// subscriptionRequests builds one subscribe request per configured channel.
func (r *Kraken_WS_Reader) subscriptionRequests() []request.Subscribe {
	cfg := r.config.Source.Kraken.Websocket
	reqs := make([]request.Subscribe, 0, len(cfg.Subscriptions))
	for _, s := range cfg.Subscriptions {
		sub := request.NewSubscription(s.Name)
		if s.Depth > 0 {
			sub = sub.WithDepth(s.Depth)
		}
		if s.Interval > 0 {
			sub = sub.WithInterval(s.Interval)
		}
		if appconfig.IsPrivateChannel(s.Name) {
			reqs = append(reqs, request.NewSubscribe(sub.WithToken(cfg.Token)).WithReqID(r.nextReqID()))
			continue
		}
		if len(r.pairs) == 0 {
			continue
		}
		reqs = append(reqs, request.NewSubscribe(sub).WithReqID(r.nextReqID()).WithPairs(r.pairs...))
	}
	return reqs
}

func (r *Kraken_WS_Reader) subscribeAll(conn frameWriter) error {
	for _, req := range r.subscriptionRequests() {
		if err := r.send(conn, req); err != nil {
			return err
		}
	}
	return nil
}

// unsubscribeAll is best effort and ignores the rate limiter.
func (r *Kraken_WS_Reader) unsubscribeAll(conn frameWriter) {
	cfg := r.config.Source.Kraken.Websocket
	for _, s := range cfg.Subscriptions {
		sub := request.NewUnsubscribeSubscription(s.Name)
		if s.Depth > 0 {
			sub = sub.WithDepth(s.Depth)
		}
		if s.Interval > 0 {
			sub = sub.WithInterval(s.Interval)
		}
		req := request.NewUnsubscribe().WithReqID(r.nextReqID())
		switch {
		case appconfig.IsPrivateChannel(s.Name):
			req = req.WithSubscription(sub.WithToken(cfg.Token))
		case len(r.pairs) == 0:
			continue
		default:
			req = req.WithSubscription(sub).WithFrom(request.FromPairs(r.pairs...))
		}
		data, err := req.MarshalJSON()
		if err != nil {
			continue
		}
		r.writeMu.Lock()
		conn.WriteMessage(websocket.TextMessage, data)
		r.writeMu.Unlock()
	}
}

// processMessage classifies one frame. It returns true when a publication was
// forwarded to the publication channel.
func (r *Kraken_WS_Reader) processMessage(msg []byte) bool {
	log := r.log.WithComponent(component)

	pub, pubErr := publication.Decode(msg)
	if pubErr == nil {
		logger.IncrementPublication(publication.Name(pub), len(msg))
		switch p := pub.(type) {
		case publication.Heartbeat:
			return false
		case publication.SystemStatus:
			log.WithFields(logger.Fields{
				"connection_id": p.ConnectionID,
				"status":        string(p.Status),
				"version":       p.Version,
			}).Info("system status")
			return false
		}
		raw := channel.RawPublication{Publication: pub, ReceivedAt: time.Now(), Shard: r.localIP}
		if r.channels.SendPub(r.ctx, raw) {
			return true
		}
		if r.ctx.Err() == nil {
			log.WithFields(logger.Fields{"publication": publication.Name(pub)}).Warn("publication channel full, dropping message")
		}
		return false
	}

	resp, respErr := response.Decode(msg)
	if respErr != nil {
		logger.IncrementDecodeFailure(len(msg))
		log.WithError(errors.Join(pubErr, respErr)).Warn("unclassified websocket frame")
		return false
	}
	logger.IncrementResponse(resp.EventName(), len(msg))
	r.handleResponse(resp)
	return false
}

func (r *Kraken_WS_Reader) handleResponse(resp response.Response) {
	log := r.log.WithComponent(component)
	switch v := resp.(type) {
	case response.SubscriptionStatus:
		fields := logger.Fields{"status": v.Status, "subscription": v.Subscription.Name}
		if v.Pair != nil {
			fields["pair"] = v.Pair.String()
		}
		if v.Result != nil && v.Result.Failed() {
			log.WithFields(fields).WithField("error", *v.Result.ErrorMessage).Warn("subscription failed")
			return
		}
		if v.Result != nil && v.Result.ChannelID != nil {
			fields["channel_id"] = *v.Result.ChannelID
			info := subscriptionInfo{name: v.Subscription.Name}
			if v.Pair != nil {
				info.pair = v.Pair.String()
			}
			if v.Status == "unsubscribed" {
				r.subscriptions.Delete(*v.Result.ChannelID)
			} else {
				r.subscriptions.Store(*v.Result.ChannelID, info)
			}
		}
		log.WithFields(fields).Info("subscription status")
	case response.Error:
		log.WithField("error", v.ErrorMessage).Warn("kraken error event")
	case response.Pong:
		log.Debug("pong")
	default:
		log.WithField("event", resp.EventName()).Info("order response")
	}
}

// Subscriptions returns the number of acknowledged subscriptions.
func (r *Kraken_WS_Reader) Subscriptions() int {
	n := 0
	r.subscriptions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// validatePairs drops pairs the AssetPairs listing does not know. On REST
// failure the pairs are kept unchanged.
func (r *Kraken_WS_Reader) validatePairs(pairs []models.CurrencyPair) []models.CurrencyPair {
	log := r.log.WithComponent(component)
	listing, err := r.rest.AssetPairs(r.ctx)
	if err != nil {
		log.WithError(err).Warn("failed to fetch asset pairs, skipping validation")
		return pairs
	}
	known := listing.WSNames()
	var filtered []models.CurrencyPair
	for _, p := range pairs {
		if _, ok := known[p.String()]; ok {
			filtered = append(filtered, p)
		} else {
			log.WithFields(logger.Fields{"pair": p.String()}).Warn("unknown pair, skipping")
		}
	}
	return filtered
}
