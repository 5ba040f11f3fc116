// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rpcclient implements the chain client against a node's HTTP API.
package rpcclient

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/BancambiosDeFi/stake-o-matic/chain"
	"github.com/BancambiosDeFi/stake-o-matic/log"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
)

var logger = log.WithContext("pkg", "rpcclient")

const (
	requestTimeout  = 10 * time.Second
	confirmInterval = 2 * time.Second
	confirmTimeout  = 90 * time.Second
)

// Client talks to a node over HTTP. It implements chain.Client.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the node at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type jsonAccount struct {
	Lamports uint64  `json:"lamports"`
	Owner    string  `json:"owner"`
	Data     hexData `json:"data"`
}

type hexData []byte

func (h hexData) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%x", []byte(h)))
}

func (h *hexData) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s) >= 2 && s[:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*h = b
	return nil
}

type jsonActivation struct {
	State    string `json:"state"`
	Active   uint64 `json:"active"`
	Inactive uint64 `json:"inactive"`
}

type jsonEpochInfo struct {
	Epoch        uint64 `json:"epoch"`
	SlotIndex    uint64 `json:"slotIndex"`
	SlotsInEpoch uint64 `json:"slotsInEpoch"`
}

// Account implements chain.Client.
func (c *Client) Account(addr sol.Address) (*chain.Account, error) {
	var acc jsonAccount
	found, err := c.get("/accounts/"+addr.String(), &acc)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	owner, err := sol.ParseAddress(acc.Owner)
	if err != nil {
		return nil, errors.WithMessagef(chain.ErrDecode, "account %v owner: %v", addr, err)
	}
	return &chain.Account{Lamports: acc.Lamports, Owner: owner, Data: acc.Data}, nil
}

// Balance implements chain.Client.
func (c *Client) Balance(addr sol.Address) (uint64, error) {
	var out struct {
		Balance uint64 `json:"balance"`
	}
	found, err := c.get("/accounts/"+addr.String()+"/balance", &out)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return out.Balance, nil
}

// StakeActivation implements chain.Client.
func (c *Client) StakeActivation(addr sol.Address, epoch *uint64) (chain.Activation, error) {
	path := "/stakes/" + addr.String() + "/activation"
	if epoch != nil {
		path += "?epoch=" + fmt.Sprint(*epoch)
	}
	var out jsonActivation
	found, err := c.get(path, &out)
	if err != nil {
		return chain.Activation{}, err
	}
	if !found {
		return chain.Activation{}, errors.WithMessagef(chain.ErrDecode, "no stake account at %v", addr)
	}

	var state chain.ActivationState
	switch out.State {
	case "activating":
		state = chain.StakeActivating
	case "active":
		state = chain.StakeActive
	case "deactivating":
		state = chain.StakeDeactivating
	case "inactive":
		state = chain.StakeInactive
	default:
		return chain.Activation{}, errors.WithMessagef(chain.ErrDecode, "unknown activation state %q", out.State)
	}
	return chain.Activation{State: state, Active: out.Active, Inactive: out.Inactive}, nil
}

// MinimumBalanceForRentExemption implements chain.Client.
func (c *Client) MinimumBalanceForRentExemption(size uint64) (uint64, error) {
	var out struct {
		Lamports uint64 `json:"lamports"`
	}
	if _, err := c.get("/rent-exemption?size="+fmt.Sprint(size), &out); err != nil {
		return 0, err
	}
	return out.Lamports, nil
}

// StakeAccountsByAuthority implements chain.Client.
func (c *Client) StakeAccountsByAuthority(authority sol.Address) ([]sol.Address, error) {
	var out struct {
		Accounts []string `json:"accounts"`
	}
	if _, err := c.get("/stakes?authority="+url.QueryEscape(authority.String()), &out); err != nil {
		return nil, err
	}
	addrs := make([]sol.Address, 0, len(out.Accounts))
	for _, s := range out.Accounts {
		addr, err := sol.ParseAddress(s)
		if err != nil {
			return nil, errors.WithMessagef(chain.ErrDecode, "stake account list: %v", err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// EpochInfo implements chain.Client.
func (c *Client) EpochInfo() (chain.EpochInfo, error) {
	var out jsonEpochInfo
	if _, err := c.get("/epoch", &out); err != nil {
		return chain.EpochInfo{}, err
	}
	return chain.EpochInfo{Epoch: out.Epoch, SlotIndex: out.SlotIndex, SlotsInEpoch: out.SlotsInEpoch}, nil
}

// Submit implements chain.Client.
func (c *Client) Submit(raw []byte) (sol.Signature, error) {
	body, err := json.Marshal(map[string]string{"raw": fmt.Sprintf("0x%x", raw)})
	if err != nil {
		return sol.Signature{}, err
	}
	resp, err := c.http.Post(c.baseURL+"/transactions", "application/json", bytes.NewReader(body))
	if err != nil {
		return sol.Signature{}, errors.WithMessage(chain.ErrNetwork, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return sol.Signature{}, errors.Errorf("submit rejected: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return sol.Signature{}, errors.WithMessage(chain.ErrDecode, err.Error())
	}
	var sigBytes []byte
	if _, err := fmt.Sscanf(out.ID, "0x%x", &sigBytes); err != nil {
		return sol.Signature{}, errors.WithMessagef(chain.ErrDecode, "transaction id %q", out.ID)
	}
	return sol.BytesToSignature(sigBytes), nil
}

// Confirm implements chain.Client. It polls the transaction receipt until
// the transaction lands or the confirmation window closes.
func (c *Client) Confirm(sig sol.Signature) error {
	deadline := time.Now().Add(confirmTimeout)
	for {
		var out struct {
			Confirmed bool   `json:"confirmed"`
			Err       string `json:"error"`
		}
		found, err := c.get("/transactions/"+sig.String()+"/receipt", &out)
		if err != nil {
			return err
		}
		if found {
			if out.Err != "" {
				return errors.Errorf("transaction %v failed: %s", sig, out.Err)
			}
			if out.Confirmed {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return errors.WithMessagef(chain.ErrNetwork, "confirmation of %v timed out", sig)
		}
		logger.Trace("awaiting confirmation", "sig", sig)
		time.Sleep(confirmInterval)
	}
}

// get fetches path and decodes the JSON body into v. It returns false
// without error on 404.
func (c *Client) get(path string, v any) (bool, error) {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return false, errors.WithMessage(chain.ErrNetwork, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, errors.WithMessagef(chain.ErrNetwork, "unexpected status %s for %s", resp.Status, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, errors.WithMessage(chain.ErrDecode, err.Error())
	}
	return true, nil
}
