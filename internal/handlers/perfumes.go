package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tienda_perfumes/internal/middleware"
	"tienda_perfumes/internal/models"
	"tienda_perfumes/internal/repository"
	"tienda_perfumes/internal/search"
	"tienda_perfumes/internal/storage"
)

type PerfumeHandler struct {
	catalog  repository.CatalogRepository
	engine   search.Engine
	uploader storage.Uploader
}

// NewPerfumeHandler accepte un moteur de recherche et un stockage d'images nuls :
// la recherche retombe alors sur le catalogue et l'upload répond 503.
func NewPerfumeHandler(catalog repository.CatalogRepository, engine search.Engine, uploader storage.Uploader) *PerfumeHandler {
	return &PerfumeHandler{catalog: catalog, engine: engine, uploader: uploader}
}

func queryLimit(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 || limit > 200 {
		return def
	}
	return limit
}

func (h *PerfumeHandler) List(c *gin.Context) {
	list, err := h.catalog.ListPerfumes(c.Request.Context(), queryLimit(c, 50))
	if err != nil {
		log.Printf("❌ Erreur lecture catalogue: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"perfumes": list, "count": len(list)})
}

func (h *PerfumeHandler) Get(c *gin.Context) {
	p, err := h.catalog.GetPerfume(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Parfum introuvable"})
		return
	}
	if err != nil {
		log.Printf("❌ Erreur lecture parfum: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// Search interroge Elasticsearch et retombe sur un filtre du catalogue
// si le moteur est absent ou en panne.
func (h *PerfumeHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		badRequest(c, "paramètre q manquant")
		return
	}
	limit := queryLimit(c, 20)
	ctx := c.Request.Context()

	if h.engine != nil {
		out, err := h.searchIndex(ctx, q, limit)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"perfumes": out, "count": len(out)})
			return
		}
		log.Printf("⚠️ Recherche Elasticsearch indisponible, repli sur le catalogue: %v", err)
	}

	all, err := h.catalog.ListPerfumes(ctx, fallbackScan)
	if err != nil {
		log.Printf("❌ Erreur lecture catalogue: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	needle := strings.ToLower(q)
	out := make([]models.Perfume, 0)
	for _, p := range all {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(p.Name), needle) || strings.Contains(strings.ToLower(p.Brand), needle) {
			out = append(out, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{"perfumes": out, "count": len(out)})
}

// fallbackScan borne le nombre de parfums parcourus par la recherche de repli.
const fallbackScan = 500

func (h *PerfumeHandler) searchIndex(ctx context.Context, q string, limit int) ([]models.Perfume, error) {
	ids, err := h.engine.SearchPerfumes(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	found, err := h.catalog.GetPerfumes(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Perfume, 0, len(ids))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type createPerfumeRequest struct {
	Name              string `json:"name" binding:"required"`
	Description       string `json:"description"`
	Brand             string `json:"brand"`
	Category          string `json:"category"`
	Price             string `json:"price" binding:"required"`
	Stock             int    `json:"stock"`
	LowStockThreshold int    `json:"lowStockThreshold"`
}

// Create ajoute un parfum au catalogue pour le vendeur connecté.
func (h *PerfumeHandler) Create(c *gin.Context) {
	var req createPerfumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || !price.IsPositive() {
		badRequest(c, "prix invalide")
		return
	}
	if req.Stock < 0 || req.LowStockThreshold < 0 {
		badRequest(c, "stock invalide")
		return
	}

	now := time.Now().UTC()
	p := models.Perfume{
		ID:                uuid.NewString(),
		SellerID:          c.GetString(middleware.CtxUserID),
		Name:              req.Name,
		Description:       req.Description,
		Brand:             req.Brand,
		Category:          req.Category,
		Price:             price.Round(2),
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		ImageURLs:         []string{},
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := h.catalog.CreatePerfume(c.Request.Context(), &p); err != nil {
		log.Printf("❌ Erreur création parfum: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	h.reindex(c.Request.Context(), p)

	log.Printf("✅ Parfum %s créé par %s", p.ID, p.SellerID)
	c.JSON(http.StatusCreated, p)
}

// reindex met à jour Elasticsearch sans faire échouer la requête.
func (h *PerfumeHandler) reindex(ctx context.Context, p models.Perfume) {
	if h.engine == nil {
		return
	}
	if err := h.engine.IndexPerfume(context.WithoutCancel(ctx), p); err != nil {
		log.Printf("⚠️ Indexation du parfum %s échouée: %v", p.ID, err)
	}
}

// owned charge le parfum et vérifie que l'appelant en est le vendeur (ou un admin).
func (h *PerfumeHandler) owned(c *gin.Context) (*models.Perfume, bool) {
	p, err := h.catalog.GetPerfume(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Parfum introuvable"})
		return nil, false
	}
	if err != nil {
		log.Printf("❌ Erreur lecture parfum: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return nil, false
	}
	actor := actorFrom(c)
	if !actor.IsAdmin() && p.SellerID != actor.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return nil, false
	}
	return p, true
}

func (h *PerfumeHandler) UploadImage(c *gin.Context) {
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stockage d'images indisponible"})
		return
	}
	p, ok := h.owned(c)
	if !ok {
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "fichier image manquant")
		return
	}
	if file.Size > storage.MaxImageSize {
		badRequest(c, "image trop volumineuse (5 Mo max)")
		return
	}
	src, err := file.Open()
	if err != nil {
		log.Printf("❌ Erreur ouverture fichier: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	defer src.Close()

	url, err := h.uploader.UploadPerfumeImage(c.Request.Context(), p.ID, file.Header.Get("Content-Type"), src, file.Size)
	if errors.Is(err, storage.ErrUnsupportedType) {
		badRequest(c, "format accepté : jpeg, png ou webp")
		return
	}
	if err != nil {
		log.Printf("❌ Erreur upload MinIO: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur upload"})
		return
	}
	if err := h.catalog.AddImageURL(c.Request.Context(), p.ID, url); err != nil {
		log.Printf("❌ Erreur enregistrement image: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Restock ajoute du stock à un parfum du vendeur.
func (h *PerfumeHandler) Restock(c *gin.Context) {
	var req struct {
		Quantity int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity <= 0 {
		badRequest(c, "quantité invalide")
		return
	}
	p, ok := h.owned(c)
	if !ok {
		return
	}

	stock, err := h.catalog.IncrementStock(c.Request.Context(), p.ID, req.Quantity)
	if err != nil {
		log.Printf("❌ Erreur réapprovisionnement %s: %v", p.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	p.Stock = stock
	h.reindex(c.Request.Context(), *p)

	c.JSON(http.StatusOK, gin.H{"perfumeId": p.ID, "stock": stock})
}
