package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	// dashboard feed
	FramesReceived   atomic.Int64
	FramesMalformed  atomic.Int64
	MessagesNoID     atomic.Int64
	MessagesNoCoords atomic.Int64
	FeedReconnects   atomic.Int64
	RenderCoalesced  atomic.Int64

	// engine
	LinesReceived         atomic.Int64
	FixesParsed           atomic.Int64
	ChecksumFailures      atomic.Int64
	QueueDrops            atomic.Int64
	BroadcastChannelDrops atomic.Int64
	StateChannelDrops     atomic.Int64
	TrackChannelDrops     atomic.Int64
	AlertChannelDrops     atomic.Int64
	PublishChannelDrops   atomic.Int64
	DispatchAfterClose    atomic.Int64
	TrackWriteSuccess     atomic.Int64
	TrackWriteFailures    atomic.Int64
	HubClients            atomic.Int64
)

func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "fleetwatch_frames_received_total %d\n", FramesReceived.Load())
	fmt.Fprintf(w, "fleetwatch_frames_malformed_total %d\n", FramesMalformed.Load())
	fmt.Fprintf(w, "fleetwatch_messages_no_id_total %d\n", MessagesNoID.Load())
	fmt.Fprintf(w, "fleetwatch_messages_no_coords_total %d\n", MessagesNoCoords.Load())
	fmt.Fprintf(w, "fleetwatch_feed_reconnects_total %d\n", FeedReconnects.Load())
	fmt.Fprintf(w, "fleetwatch_render_coalesced_total %d\n", RenderCoalesced.Load())
	fmt.Fprintf(w, "fleetengine_lines_received_total %d\n", LinesReceived.Load())
	fmt.Fprintf(w, "fleetengine_fixes_parsed_total %d\n", FixesParsed.Load())
	fmt.Fprintf(w, "fleetengine_checksum_failures_total %d\n", ChecksumFailures.Load())
	fmt.Fprintf(w, "fleetengine_queue_drops_total %d\n", QueueDrops.Load())
	fmt.Fprintf(w, "fleetengine_broadcast_channel_drops_total %d\n", BroadcastChannelDrops.Load())
	fmt.Fprintf(w, "fleetengine_state_channel_drops_total %d\n", StateChannelDrops.Load())
	fmt.Fprintf(w, "fleetengine_track_channel_drops_total %d\n", TrackChannelDrops.Load())
	fmt.Fprintf(w, "fleetengine_alert_channel_drops_total %d\n", AlertChannelDrops.Load())
	fmt.Fprintf(w, "fleetengine_publish_channel_drops_total %d\n", PublishChannelDrops.Load())
	fmt.Fprintf(w, "fleetengine_dispatch_after_close_total %d\n", DispatchAfterClose.Load())
	fmt.Fprintf(w, "fleetengine_track_write_success_total %d\n", TrackWriteSuccess.Load())
	fmt.Fprintf(w, "fleetengine_track_write_failures_total %d\n", TrackWriteFailures.Load())
	fmt.Fprintf(w, "fleetengine_hub_clients %d\n", HubClients.Load())
}
