package router

import (
	"net/http"

	"Lee_Social/internal/handler"
	"Lee_Social/internal/middleware"
	"Lee_Social/internal/observability"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps 路由需要的全部依赖，在 main 里构造好传进来
type Deps struct {
	ServiceName string
	Tokens      *pkg.TokenManager
	Users       *service.UserService
	Friendships *service.FriendshipService
	Locations   *service.LocationService
	Messages    *service.MessageService
	Metrics     *observability.Metrics
	Gatherer    prometheus.Gatherer
	RateLimiter *middleware.RateLimiter
	WSRateLimit float64
}

func InitRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(middleware.RequestLogger(d.Metrics))

	user := handler.NewUserHandler(d.Users)
	friends := handler.NewFriendshipHandler(d.Friendships)
	location := handler.NewLocationHandler(d.Locations, d.Metrics, d.WSRateLimit)
	chat := handler.NewChatHandler(d.Messages, d.Metrics)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	auth := middleware.AuthMiddleware(d.Tokens, d.Users)
	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if d.RateLimiter != nil {
		limit = d.RateLimiter.Middleware()
	}

	// 用户相关接口
	userGroup := r.Group("/api/user")
	userGroup.Use(limit)
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
		userGroup.POST("/logout", auth, user.Logout)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	tokenGroup.Use(limit)
	{
		tokenGroup.POST("/refresh", user.TokenRefresh)
	}

	usersGroup := r.Group("/api/users")
	usersGroup.Use(auth, limit)
	{
		usersGroup.GET("/me", user.Me)
		usersGroup.GET("/:id", user.Profile)
	}

	// 头像上传与下载地址
	filesGroup := r.Group("/api/files")
	filesGroup.Use(auth, limit)
	{
		filesGroup.POST("/profile", user.UploadProfileImage)
		filesGroup.GET("/profile", user.ProfileImageURL)
	}

	// 好友相关接口
	friendGroup := r.Group("/api/friends")
	friendGroup.Use(auth, limit)
	{
		friendGroup.GET("", friends.ListFriends)
		friendGroup.POST("", friends.Send)
		friendGroup.GET("/requests/sent", friends.ListSent)
		friendGroup.GET("/requests/received", friends.ListReceived)
		friendGroup.PATCH("/:id/accept", friends.Accept)
		friendGroup.PATCH("/:id/decline", friends.Decline)
		friendGroup.DELETE("/:id", friends.Unfriend)
	}

	// 位置相关接口，长连接不走限流中间件，WebSocket 内部按连接限流
	locationGroup := r.Group("/api/location")
	locationGroup.Use(auth)
	{
		locationGroup.GET("/friends", limit, location.Friends)
		locationGroup.GET("/ws", location.Live)
		locationGroup.GET("/stream/:user_id", location.Stream)
		locationGroup.GET("/:user_id", limit, location.Get)
		locationGroup.POST("", limit, location.Set)
	}

	// 聊天相关接口
	chatGroup := r.Group("/api/chat")
	chatGroup.Use(auth)
	{
		chatGroup.GET("/stream", chat.Stream)
		chatGroup.GET("/:user_id", limit, chat.History)
		chatGroup.POST("/:user_id", limit, chat.Send)
	}

	adminGroup := r.Group("/api/admin")
	adminGroup.Use(auth, middleware.AdminMiddleware(d.Users))
	{
		adminGroup.GET("/friendships", friends.AdminList)
	}

	return r
}
