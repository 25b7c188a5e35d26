// Package connected implements the vehicle service over the ConnectedDrive REST api.
package connected

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/util"
	"github.com/evcc-io/cdrive/util/request"
	"github.com/evcc-io/cdrive/util/tree"
	"golang.org/x/oauth2"
)

// https://github.com/bimmerconnected/bimmer_connected
// https://github.com/jupe76/bmwcdapi

// Service is an api.VehicleService implementation for ConnectedDrive accounts
type Service struct {
	*request.Helper
	servers map[string]string
}

var _ api.VehicleService = (*Service)(nil)

// New creates the service for the public region servers
func New(log *util.Logger) *Service {
	servers := make(map[string]string, len(Servers))
	for region, host := range Servers {
		servers[region] = "https://" + host
	}

	return &Service{
		Helper:  request.NewHelper(log),
		servers: servers,
	}
}

// NewWithServer creates the service using uri for all regions
func NewWithServer(log *util.Logger, uri string) *Service {
	servers := make(map[string]string, len(Servers))
	for region := range Servers {
		servers[region] = strings.TrimSuffix(uri, "/")
	}

	return &Service{
		Helper:  request.NewHelper(log),
		servers: servers,
	}
}

func (v *Service) server(region string) (string, error) {
	r, err := RegionString(region)
	if err != nil {
		return "", err
	}

	return v.servers[r], nil
}

// vehicleURI returns the api uri of a vehicle. The region is encoded in the token's extra data.
func (v *Service) vehicleURI(token *oauth2.Token, vin string, path ...string) (string, error) {
	region, _ := token.Extra("region").(string)
	if region == "" {
		region = "WD"
	}

	base, err := v.server(region)
	if err != nil {
		return "", err
	}

	uri := fmt.Sprintf("%s/webapi/v1/user/vehicles", base)
	if vin != "" {
		uri += "/" + url.PathEscape(vin)
	}

	for _, p := range path {
		uri += "/" + p
	}

	return uri, nil
}

func (v *Service) request(ctx context.Context, token *oauth2.Token, method, uri string, data interface{}) (*http.Request, error) {
	req, err := request.NewWithContext(ctx, method, uri, request.MarshalJSON(data), request.JSONEncoding, map[string]string{
		"User-Agent": UserAgent,
	})
	if err == nil {
		token.SetAuthHeader(req)
	}

	return req, err
}

// Vehicles implements the /user/vehicles api
func (v *Service) Vehicles(ctx context.Context, token *oauth2.Token) ([]api.VehicleRef, error) {
	uri, err := v.vehicleURI(token, "")
	if err != nil {
		return nil, err
	}

	req, err := v.request(ctx, token, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}

	body, err := v.DoBody(req)
	if err != nil {
		return nil, err
	}

	doc, err := tree.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrDecode, err)
	}

	return vehicles(doc)
}

// Status implements the /user/vehicles/<vin>/status api
func (v *Service) Status(ctx context.Context, token *oauth2.Token, vin string) (tree.Node, error) {
	uri, err := v.vehicleURI(token, vin, "status")
	if err != nil {
		return nil, err
	}

	req, err := v.request(ctx, token, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}

	body, err := v.DoBody(req)
	if err != nil {
		return nil, err
	}

	doc, err := tree.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrDecode, err)
	}

	m, _ := doc.(tree.Mapping)
	status, ok := m.Get("vehicleStatus")
	if !ok {
		return nil, fmt.Errorf("%w: missing vehicleStatus", api.ErrNotFound)
	}

	sm, ok := status.(tree.Mapping)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected vehicleStatus", api.ErrDecode)
	}

	return normalize(sm), nil
}

// Execute implements the /user/vehicles/<vin>/executeService and /sendpoi api
func (v *Service) Execute(ctx context.Context, token *oauth2.Token, vin string, cmd api.Command, poi *api.POI) (api.Execution, error) {
	if cmd == api.CommandSendPOI {
		return v.sendPOI(ctx, token, vin, poi)
	}

	serviceType, ok := serviceTypes[cmd]
	if !ok {
		return api.Execution{}, fmt.Errorf("%w: %s", api.ErrUnknownCommand, cmd)
	}

	uri, err := v.vehicleURI(token, vin, "executeService")
	if err != nil {
		return api.Execution{}, err
	}

	req, err := request.NewWithContext(ctx, http.MethodPost, uri, request.EncodeValues(map[string]string{
		"serviceType": serviceType,
	}), request.URLEncoding, map[string]string{
		"User-Agent": UserAgent,
	})
	if err != nil {
		return api.Execution{}, err
	}
	token.SetAuthHeader(req)

	var res ExecutionResponse
	if err := v.DoJSON(req, &res); err != nil {
		return api.Execution{}, err
	}

	state := res.ExecutionStatus.Status
	if state == "" {
		state = api.ExecutionInitiated
	}

	return api.Execution{
		Command: cmd,
		EventID: res.ExecutionStatus.EventID,
		State:   state,
	}, nil
}

func (v *Service) sendPOI(ctx context.Context, token *oauth2.Token, vin string, poi *api.POI) (api.Execution, error) {
	if poi == nil {
		return api.Execution{}, fmt.Errorf("%s: missing poi", api.CommandSendPOI)
	}

	uri, err := v.vehicleURI(token, vin, "sendpoi")
	if err != nil {
		return api.Execution{}, err
	}

	req, err := v.request(ctx, token, http.MethodPost, uri, POIRequest{POI: *poi})
	if err != nil {
		return api.Execution{}, err
	}

	resp, err := v.Do(req)
	if err != nil {
		return api.Execution{}, err
	}
	resp.Body.Close()

	if err := request.ResponseError(resp); err != nil {
		return api.Execution{}, err
	}

	return api.Execution{
		Command: api.CommandSendPOI,
		State:   api.ExecutionExecuted,
	}, nil
}

// ExecutionStatus implements the /user/vehicles/<vin>/serviceExecutionStatus api
func (v *Service) ExecutionStatus(ctx context.Context, token *oauth2.Token, vin string, exec api.Execution) (api.ExecutionState, error) {
	serviceType, ok := serviceTypes[exec.Command]
	if !ok {
		return "", fmt.Errorf("%w: %s", api.ErrUnknownCommand, exec.Command)
	}

	uri, err := v.vehicleURI(token, vin, "serviceExecutionStatus")
	if err != nil {
		return "", err
	}
	uri += "?serviceType=" + url.QueryEscape(serviceType)

	req, err := v.request(ctx, token, http.MethodGet, uri, nil)
	if err != nil {
		return "", err
	}

	var res ExecutionResponse
	if err := v.DoJSON(req, &res); err != nil {
		return "", err
	}

	return res.ExecutionStatus.Status, nil
}
