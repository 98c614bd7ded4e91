package matchapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "matchengine.v1.MatchEngine"

const (
	recordSwipeMethod = "/" + ServiceName + "/RecordSwipe"
	discoverMethod    = "/" + ServiceName + "/Discover"
	getQuotaMethod    = "/" + ServiceName + "/GetQuota"
)

type RecordSwipeRequest struct {
	SwiperID uint64 `json:"swiperId" validate:"required"`
	SwipedID uint64 `json:"swipedId" validate:"required,nefield=SwiperID"`
	// IsLike is a pointer so an omitted decision is rejected instead of
	// read as a dislike.
	IsLike      *bool `json:"isLike" validate:"required"`
	IsSuperLike bool  `json:"isSuperLike"`
}

type RecordSwipeResponse struct {
	IsMatch bool           `json:"isMatch"`
	MatchID uint64         `json:"matchId,omitempty"`
	Created bool           `json:"created"`
	Quota   *QuotaResponse `json:"quota,omitempty"`
}

type DiscoverRequest struct {
	UserID uint64 `json:"userId" validate:"required"`
	Limit  int    `json:"limit" validate:"gte=0"`
	Offset int    `json:"offset" validate:"gte=0"`
}

type Candidate struct {
	UserID            uint64    `json:"userId"`
	Username          string    `json:"username"`
	Gender            string    `json:"gender"`
	Age               int       `json:"age"`
	Tier              string    `json:"tier"`
	ProfileCompletion int       `json:"profileCompletion"`
	DistanceKM        *float64  `json:"distanceKm,omitempty"`
	LastActiveAt      time.Time `json:"lastActiveAt"`
}

type DiscoverResponse struct {
	Candidates []Candidate `json:"candidates"`
	NextOffset int         `json:"nextOffset"`
	HasMore    bool        `json:"hasMore"`
}

type GetQuotaRequest struct {
	UserID uint64 `json:"userId" validate:"required"`
}

type QuotaResponse struct {
	Unlimited       bool  `json:"unlimited"`
	LikesUsed       int   `json:"likesUsed"`
	LikesLimit      int   `json:"likesLimit"`
	SuperLikesUsed  int   `json:"superLikesUsed"`
	SuperLikesLimit int   `json:"superLikesLimit"`
	ResetsAtUnix    int64 `json:"resetsAtUnix"`
}

// MatchEngineServer is the server API of the match engine.
type MatchEngineServer interface {
	RecordSwipe(context.Context, *RecordSwipeRequest) (*RecordSwipeResponse, error)
	Discover(context.Context, *DiscoverRequest) (*DiscoverResponse, error)
	GetQuota(context.Context, *GetQuotaRequest) (*QuotaResponse, error)
}

// RegisterMatchEngineServer attaches srv to s.
func RegisterMatchEngineServer(s grpc.ServiceRegistrar, srv MatchEngineServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RecordSwipe", Handler: recordSwipeHandler},
		{MethodName: "Discover", Handler: discoverHandler},
		{MethodName: "GetQuota", Handler: getQuotaHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "matchengine/v1/match_engine.json",
}

func recordSwipeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RecordSwipeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchEngineServer).RecordSwipe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: recordSwipeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MatchEngineServer).RecordSwipe(ctx, req.(*RecordSwipeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func discoverHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DiscoverRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchEngineServer).Discover(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: discoverMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MatchEngineServer).Discover(ctx, req.(*DiscoverRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getQuotaHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetQuotaRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchEngineServer).GetQuota(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getQuotaMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MatchEngineServer).GetQuota(ctx, req.(*GetQuotaRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the match engine over the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) RecordSwipe(ctx context.Context, in *RecordSwipeRequest, opts ...grpc.CallOption) (*RecordSwipeResponse, error) {
	out := new(RecordSwipeResponse)
	if err := c.invoke(ctx, recordSwipeMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Discover(ctx context.Context, in *DiscoverRequest, opts ...grpc.CallOption) (*DiscoverResponse, error) {
	out := new(DiscoverResponse)
	if err := c.invoke(ctx, discoverMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetQuota(ctx context.Context, in *GetQuotaRequest, opts ...grpc.CallOption) (*QuotaResponse, error) {
	out := new(QuotaResponse)
	if err := c.invoke(ctx, getQuotaMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
