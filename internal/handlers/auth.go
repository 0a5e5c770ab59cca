package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tienda_perfumes/internal/models"
	"tienda_perfumes/internal/repository"
	"tienda_perfumes/internal/utils"
)

type AuthHandler struct {
	users     repository.UserRepository
	passwords *utils.PasswordHasher
	secret    string
	ttl       time.Duration
}

func NewAuthHandler(users repository.UserRepository, passwords *utils.PasswordHasher, secret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{users: users, passwords: passwords, secret: secret, ttl: ttl}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

// Register crée un compte acheteur ou vendeur. Le rôle ADMIN ne s'obtient pas ici.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	role := strings.ToUpper(req.Role)
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleSeller {
		badRequest(c, "rôle invalide")
		return
	}

	hash, err := h.passwords.Hash(req.Password)
	if err != nil {
		log.Printf("❌ Erreur hash mot de passe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	user := models.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Name:      req.Name,
		Email:     strings.ToLower(req.Email),
		Password:  hash,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	err = h.users.CreateUser(c.Request.Context(), &user)
	if errors.Is(err, repository.ErrDuplicate) {
		c.JSON(http.StatusConflict, gin.H{"error": "Ce nom d'utilisateur est déjà pris"})
		return
	}
	if err != nil {
		log.Printf("❌ Erreur création utilisateur: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.users.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Printf("❌ Erreur lecture utilisateur: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Identifiants invalides"})
		return
	}
	ok, err := h.passwords.Verify(req.Password, user.Password)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Identifiants invalides"})
		return
	}

	log.Printf("🔑 Connexion de %s", user.Username)
	h.respondWithToken(c, http.StatusOK, *user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user models.User) {
	token, err := utils.GenerateJWT(user, h.secret, h.ttl)
	if err != nil {
		log.Printf("❌ Erreur génération JWT: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur serveur"})
		return
	}
	c.JSON(status, gin.H{"token": token, "user": user})
}
