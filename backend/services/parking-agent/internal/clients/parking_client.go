package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"parkingagent/backend/services/parking-agent/internal/models"
)

// Request runs one HTTP exchange with the supplied session headers.
type Request = func(ctx context.Context, headers map[string]string) (int, []byte, error)

// Caller wraps requests with session handling (token headers, unauthorized retry).
type Caller interface {
	Call(ctx context.Context, req Request) (int, []byte, error)
}

// Device identifies the phone the account is bound to.
type Device struct {
	IMEI string
	UUID string
}

// Card is the credit card used for balance purchases.
type Card struct {
	CVV        string
	Number     string
	Expiration string
	Brand      string
	Holder     string
}

type cardPayload struct {
	CVV        string `json:"cvv"`
	Number     string `json:"numero"`
	SaveCard   bool   `json:"salvar_cartao"`
	Expiration string `json:"data_expiracao"`
	Brand      string `json:"bandeira"`
	Holder     string `json:"titular"`
}

type chargePayload struct {
	PaymentMethod string      `json:"forma_pagamento"`
	Card          cardPayload `json:"cartao"`
	Amount        json.Number `json:"valor"`
	Capture       bool        `json:"capturar"`
}

type devicePayload struct {
	IMEI string `json:"imei"`
	UUID string `json:"uuid"`
}

type purchasePayload struct {
	TransactionUUID string        `json:"uuid_transacao"`
	Charge          chargePayload `json:"cobranca"`
	Device          devicePayload `json:"dispositivo"`
	OrgID           int           `json:"prefeitura_id"`
}

type activationPayload struct {
	PreviousActivationID int64   `json:"ativacao_anterior_id"`
	ActivationUUID       string  `json:"uuid_ativacao"`
	Cancel               bool    `json:"cancelar"`
	DeviceIMEI           string  `json:"imei_dispositivo"`
	DeviceUUID           string  `json:"uuid_dispositivo"`
	Extend               bool    `json:"estender"`
	ID                   int64   `json:"id"`
	Latitude             float64 `json:"latitude"`
	Longitude            float64 `json:"longitude"`
	OrgID                int     `json:"prefeitura_id"`
	RuleID               int     `json:"regra_valor_tempo_id"`
	VehicleTypeID        int     `json:"tipo_veiculo_id"`
	Plate                string  `json:"veiculo_usuario_placa"`
	Street               *string `json:"endereco_logradouro,omitempty"`
	Number               *string `json:"endereco_numero,omitempty"`
	District             *string `json:"endereco_bairro,omitempty"`
}

// ParkingClient calls the authenticated parking API endpoints.
type ParkingClient struct {
	base   *BaseClient
	caller Caller
	orgID  int
	device Device
	card   Card
	newID  func() string
}

// NewParkingClient returns client.
func NewParkingClient(baseURL string, httpClient HTTPDoer, caller Caller, orgID int, device Device, card Card) *ParkingClient {
	return &ParkingClient{
		base:   NewBaseClient(baseURL, httpClient),
		caller: caller,
		orgID:  orgID,
		device: device,
		card:   card,
		newID:  uuid.NewString,
	}
}

// ListVehicles returns vehicles registered to the session's account.
func (c *ParkingClient) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	query := url.Values{"dados_completos": {"true"}}
	var vehicles []models.Vehicle
	if err := c.call(ctx, http.MethodGet, "/v3/usuarios/veiculos", query, nil, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// GetBalance returns the current balance of the subject.
func (c *ParkingClient) GetBalance(ctx context.Context, subjectID int64) (models.Balance, error) {
	query := url.Values{"prefeitura_id": {strconv.Itoa(c.orgID)}}
	var balance models.Balance
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/v4/usuarios/%d/saldo", subjectID), query, nil, &balance)
	return balance, err
}

// Purchase buys amount of credit with the configured card. The transaction
// UUID is fixed before the call so an unauthorized retry resubmits the same purchase.
func (c *ParkingClient) Purchase(ctx context.Context, subjectID int64, amount decimal.Decimal) error {
	payload := purchasePayload{
		TransactionUUID: c.newID(),
		Charge: chargePayload{
			PaymentMethod: "CARTAO_CREDITO",
			Card: cardPayload{
				CVV:        c.card.CVV,
				Number:     c.card.Number,
				SaveCard:   true,
				Expiration: c.card.Expiration,
				Brand:      c.card.Brand,
				Holder:     c.card.Holder,
			},
			Amount:  json.Number(models.RoundCents(amount).StringFixed(2)),
			Capture: true,
		},
		Device: devicePayload{IMEI: c.device.IMEI, UUID: c.device.UUID},
		OrgID:  c.orgID,
	}
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/v4/usuarios/%d/compras", subjectID), nil, payload, nil)
}

// ListFines returns notifications for plates filtered by states. A zero limit
// leaves paging to the server.
func (c *ParkingClient) ListFines(ctx context.Context, plates []string, states []models.FineState, limit int) ([]models.Fine, error) {
	stateNames := make([]string, 0, len(states))
	for _, s := range states {
		stateNames = append(stateNames, string(s))
	}
	query := url.Values{
		"placas":  {strings.Join(plates, "|")},
		"estados": {strings.Join(stateNames, "|")},
	}
	if limit > 0 {
		query.Set("limite", strconv.Itoa(limit))
	}

	var list models.FineList
	if err := c.call(ctx, http.MethodGet, c.orgPath("notificacoes"), query, nil, &list); err != nil {
		return nil, err
	}
	return list.Results, nil
}

// PayFines settles the given notifications from the account balance in one call.
func (c *ParkingClient) PayFines(ctx context.Context, ids []int64) (models.FinePaymentResult, error) {
	payload := models.FinePayment{PaymentMethod: "DINHEIRO", FineIDs: ids}
	var result models.FinePaymentResult
	err := c.call(ctx, http.MethodPost, c.orgPath("notificacoes/pagamentos"), nil, payload, &result)
	return result, err
}

// ListWarnings returns pending arrival warnings.
func (c *ParkingClient) ListWarnings(ctx context.Context) ([]models.Warning, error) {
	var list models.WarningList
	if err := c.call(ctx, http.MethodGet, c.orgPath("avisos"), nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Warnings, nil
}

// Activate starts (or extends) a parking activation.
func (c *ParkingClient) Activate(ctx context.Context, req models.ActivationRequest) error {
	payload := activationPayload{
		PreviousActivationID: req.PreviousActivationID,
		ActivationUUID:       c.newID(),
		DeviceIMEI:           c.device.IMEI,
		DeviceUUID:           c.device.UUID,
		Extend:               req.Extend,
		Latitude:             req.Latitude,
		Longitude:            req.Longitude,
		OrgID:                c.orgID,
		RuleID:               req.RuleID,
		VehicleTypeID:        req.VehicleTypeID,
		Plate:                req.Plate,
	}
	if req.Address != nil && req.Address.Street != "" {
		payload.Street = &req.Address.Street
		payload.Number = &req.Address.Number
		payload.District = &req.Address.District
	}
	return c.call(ctx, http.MethodPost, c.orgPath("ativar"), nil, payload, nil)
}

func (c *ParkingClient) orgPath(suffix string) string {
	return fmt.Sprintf("/v4/prefeituras/%d/%s", c.orgID, suffix)
}

func (c *ParkingClient) call(ctx context.Context, method, path string, query url.Values, payload, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return err
		}
	}

	status, resp, err := c.caller.Call(ctx, func(ctx context.Context, headers map[string]string) (int, []byte, error) {
		return c.base.Do(ctx, method, path, query, body, headers)
	})
	if err != nil {
		return err
	}
	if err := checkStatus(method, path, status, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(resp)) == 0 {
		return &DecodeError{Method: method, Path: path, Err: ErrEmptyBody}
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return &DecodeError{Method: method, Path: path, Err: err}
	}
	return nil
}
