package bcb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/cofrinho-service/internal/config"
	"github.com/Dan9191/cofrinho-service/internal/models"
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BCBClient reads benchmark rates from the Banco Central do Brasil SGS service
type BCBClient struct {
	url    string
	series int
	client *http.Client
	log    *logrus.Logger
}

// NewBCBClient initializes a new BCB client
func NewBCBClient(cfg *config.Config, log *logrus.Logger) *BCBClient {
	return &BCBClient{
		url:    cfg.BCBURL,
		series: cfg.CDISeries,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// buildSOAPRequest creates a SOAP request for the last value of the series
func (c *BCBClient) buildSOAPRequest() string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
		<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:pub="http://publico.ws.casosdeuso.sgs.pec.bcb.gov.br">
			<soapenv:Body>
				<pub:getUltimoValorXML>
					<in0>%d</in0>
				</pub:getUltimoValorXML>
			</soapenv:Body>
		</soapenv:Envelope>`, c.series)
}

// sendRequest sends SOAP request to BCB
func (c *BCBClient) sendRequest(ctx context.Context, soapRequest string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(soapRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "getUltimoValorXML")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("BCB XML response: %s", string(body))

	return body, nil
}

// parseXMLResponse extracts the last observation of the series.
// The SOAP return value carries the SGS document as escaped text.
func (c *BCBClient) parseXMLResponse(rawBody []byte) (*models.KeyRate, error) {
	doc := newDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	if ret := doc.FindElement("//getUltimoValorXMLReturn"); ret != nil {
		inner := newDocument()
		if err := inner.ReadFromString(strings.TrimSpace(ret.Text())); err != nil {
			return nil, fmt.Errorf("failed to parse SGS document: %w", err)
		}
		doc = inner
	}

	serie := doc.FindElement("//resposta/SERIE")
	if serie == nil {
		return nil, fmt.Errorf("no series data found in XML")
	}

	valueElement := serie.FindElement("./VALOR")
	if valueElement == nil {
		return nil, fmt.Errorf("rate element not found in XML")
	}
	rate, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(valueElement.Text()), ",", "."))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate: %w", err)
	}

	date, err := parseDate(serie.FindElement("./DATA"))
	if err != nil {
		return nil, err
	}

	return &models.KeyRate{Series: c.series, Date: date, Rate: rate}, nil
}

// newDocument returns a document that ignores the declared charset.
// SGS declares ISO-8859-1 but the embedded document is already decoded text.
func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return doc
}

func parseDate(el *etree.Element) (time.Time, error) {
	if el == nil {
		return time.Time{}, fmt.Errorf("date element not found in XML")
	}
	parts := make([]int, 3)
	for i, tag := range []string{"ANO", "MES", "DIA"} {
		child := el.FindElement("./" + tag)
		if child == nil {
			return time.Time{}, fmt.Errorf("%s element not found in XML", tag)
		}
		n, err := strconv.Atoi(strings.TrimSpace(child.Text()))
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse %s: %w", tag, err)
		}
		parts[i] = n
	}
	return time.Date(parts[0], time.Month(parts[1]), parts[2], 0, 0, 0, 0, time.UTC), nil
}

// GetKeyRate retrieves the latest CDI observation, in percent per year
func (c *BCBClient) GetKeyRate(ctx context.Context) (*models.KeyRate, error) {
	soapRequest := c.buildSOAPRequest()
	body, err := c.sendRequest(ctx, soapRequest)
	if err != nil {
		return nil, err
	}

	rate, err := c.parseXMLResponse(body)
	if err != nil {
		return nil, err
	}

	c.log.Infof("Retrieved CDI rate: %s%% (series %d, %s)", rate.Rate.String(), rate.Series, rate.Date.Format("2006-01-02"))
	return rate, nil
}
