package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adstash/adstash/internal/scraper"
	"github.com/adstash/adstash/internal/usecase"
)

// VerifyExtension lets the extension check its token before capturing.
func (s *Server) VerifyExtension(ctx echo.Context) error {
	u, err := s.server.GetMe(ctx.Request().Context())
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	data := toUser(u)
	data.AuthMethod = authMethod(ctx)
	return ctx.JSON(http.StatusOK, Res{Data: data, Message: "Token is valid"})
}

type ExtensionInitUploadRequest struct {
	InitUploadRequest
	// set when the page's media could not be fetched by the extension
	RemoteOnly bool `json:"remote_only"`
}

func (s *Server) ExtensionInitUpload(ctx echo.Context) error {
	var req ExtensionInitUploadRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	in := req.toUsecase(usecase.CaptureExtension)
	in.RemoteOnly = req.RemoteOnly

	ticket, err := s.server.InitUpload(ctx.Request().Context(), in)
	if err != nil {
		return s.errorJSON(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, Res{Data: toUploadTicket(ticket)})
}

type ScanRequest struct {
	URL  string `json:"url" validate:"required,url"`
	HTML string `json:"html" validate:"required"`
}

// ScanPage runs the page scanner over HTML captured by the client.
func (s *Server) ScanPage(ctx echo.Context) error {
	var req ScanRequest
	if err := ctx.Bind(&req); err != nil {
		return bindError(ctx, err)
	}
	if err := s.validator.Struct(req); err != nil {
		return validateError(ctx, err)
	}

	page := scraper.Scan(req.URL, req.HTML)
	return ctx.JSON(http.StatusOK, Res{Data: page, Meta: &Meta{
		Total: len(page.Media),
		Limit: len(page.Media),
	}})
}
